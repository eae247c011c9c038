package code

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// DiffPreview is the (old_line, new_line) pair shown in the incident detail
// view, taken from the first differing non-whitespace line of a patch.
type DiffPreview struct {
	OldLine string
	NewLine string
}

// PatchTarget classifies which rewriter applies to a target file, inferred
// from its path (spec §4.4).
type PatchTarget int

const (
	TargetUnknown PatchTarget = iota
	TargetResolverConfig
	TargetDependenciesFile
	TargetApplicationHandler
)

// ClassifyTarget infers the patch target archetype from a file path.
func ClassifyTarget(path string) PatchTarget {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "resolver") && (strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")):
		return TargetResolverConfig
	case strings.Contains(lower, "dependenc") && (strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")):
		return TargetDependenciesFile
	case strings.Contains(lower, "handler") && !strings.HasSuffix(lower, ".yaml") && !strings.HasSuffix(lower, ".yml"):
		return TargetApplicationHandler
	default:
		return TargetUnknown
	}
}

// safeResolvers is the known-safe multi-resolver list substituted into a
// resolver config's forward directive.
var safeResolvers = []string{"10.0.0.2", "10.0.0.3", "1.1.1.1"}

// PatchContent computes the patched form of original for the given target
// file, and its diff preview. Returns ok=false if no patcher applies, in
// which case the caller should fall back to a legacy audit-comment file.
func PatchContent(path, original string, target PatchTarget) (patched string, preview DiffPreview, ok bool) {
	switch target {
	case TargetResolverConfig:
		patched = patchResolverConfig(original)
	case TargetDependenciesFile:
		patched = patchDependenciesFile(original)
	case TargetApplicationHandler:
		patched = patchApplicationHandler(original)
	default:
		return "", DiffPreview{}, false
	}
	return patched, firstDiffLine(original, patched, target), true
}

// patchResolverConfig replaces the forward directive with a known-safe
// multi-resolver list and normalizes failover_mode to AUTO, inserting
// either key if absent.
func patchResolverConfig(original string) string {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(original), &doc); err != nil || doc.Kind == 0 {
		return buildResolverConfigFromScratch()
	}

	var root *yaml.Node
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	} else {
		root = &doc
	}
	if root.Kind != yaml.MappingNode {
		return buildResolverConfigFromScratch()
	}

	setMappingValue(root, "forward", yamlStringList(safeResolvers))
	setMappingValue(root, "failover_mode", yamlScalar("AUTO"))

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return buildResolverConfigFromScratch()
	}
	return string(out)
}

func buildResolverConfigFromScratch() string {
	out, _ := yaml.Marshal(map[string]any{
		"forward":       safeResolvers,
		"failover_mode": "AUTO",
	})
	return string(out)
}

var (
	timeoutPattern      = regexp.MustCompile(`(?mi)^(\s*timeout(?:_seconds|_ms)?\s*:\s*)\S+\s*$`)
	retryPattern        = regexp.MustCompile(`(?mi)^(\s*retr(?:y|ies)(?:_count)?\s*:\s*)\S+\s*$`)
	circuitBreakerPattern = regexp.MustCompile(`(?mi)^(\s*circuit_breaker(?:_enabled)?\s*:\s*)\S+\s*$`)
)

// patchDependenciesFile regex-normalizes timeout and retry values and
// enables the circuit breaker flag; appends a resilix_remediation block if
// no recognizable keys were found to rewrite.
func patchDependenciesFile(original string) string {
	patched := original
	hits := 0

	patched, n := replaceWithCount(timeoutPattern, patched, "${1}5000")
	hits += n
	patched, n = replaceWithCount(retryPattern, patched, "${1}3")
	hits += n
	patched, n = replaceWithCount(circuitBreakerPattern, patched, "${1}true")
	hits += n

	if hits > 0 {
		return patched
	}

	block := "\nresilix_remediation:\n" +
		"  timeout_seconds: 5000\n" +
		"  retry_count: 3\n" +
		"  circuit_breaker_enabled: true\n"
	return strings.TrimRight(original, "\n") + "\n" + block
}

func replaceWithCount(re *regexp.Regexp, s, repl string) (string, int) {
	count := 0
	out := re.ReplaceAllStringFunc(s, func(match string) string {
		count++
		return re.ReplaceAllString(match, repl)
	})
	return out, count
}

var directHTTPCallPattern = regexp.MustCompile(`(?m)^(\s*)(\w+)\s*=\s*(requests|httpx|http)\.(get|post|put|delete|patch)\(([^)]*)\)\s*$`)

const guardedHelperMarker = "def resilix_guarded_http_call"

// patchApplicationHandler rewrites direct HTTP client call-sites to a
// guarded wrapper with a default timeout and typed error translation,
// injecting the helper once at end-of-file if missing.
func patchApplicationHandler(original string) string {
	patched := directHTTPCallPattern.ReplaceAllString(original,
		"${1}${2} = resilix_guarded_http_call(\"${4}\", ${5})")

	if !strings.Contains(patched, guardedHelperMarker) {
		patched = strings.TrimRight(patched, "\n") + "\n\n" + guardedHelperSource
	}
	return patched
}

const guardedHelperSource = `def resilix_guarded_http_call(method, *args, **kwargs):
    """Resilix remediation: guarded HTTP call with default timeout and
    typed error translation, injected to replace an unguarded direct call."""
    import requests

    kwargs.setdefault("timeout", 5.0)
    try:
        return getattr(requests, method)(*args, **kwargs)
    except requests.exceptions.RequestException as exc:
        raise RuntimeError(f"guarded http call failed: {exc}") from exc
`

// firstDiffLine returns the first differing non-whitespace line between the
// original and patched content, falling back to a target-typed default if
// no line-level difference is found (e.g. the patch only appended content).
func firstDiffLine(original, patched string, target PatchTarget) DiffPreview {
	origLines := strings.Split(original, "\n")
	newLines := strings.Split(patched, "\n")

	for i := 0; i < len(origLines) || i < len(newLines); i++ {
		var o, n string
		if i < len(origLines) {
			o = origLines[i]
		}
		if i < len(newLines) {
			n = newLines[i]
		}
		if strings.TrimSpace(o) != strings.TrimSpace(n) {
			return DiffPreview{OldLine: strings.TrimSpace(o), NewLine: strings.TrimSpace(n)}
		}
	}
	return defaultDiffPreview(target)
}

func defaultDiffPreview(target PatchTarget) DiffPreview {
	switch target {
	case TargetResolverConfig:
		return DiffPreview{OldLine: "forward: <unset>", NewLine: fmt.Sprintf("forward: %v", safeResolvers)}
	case TargetDependenciesFile:
		return DiffPreview{OldLine: "circuit_breaker_enabled: false", NewLine: "circuit_breaker_enabled: true"}
	case TargetApplicationHandler:
		return DiffPreview{OldLine: "requests.get(...)", NewLine: "resilix_guarded_http_call(\"get\", ...)"}
	default:
		return DiffPreview{}
	}
}

// LegacyAuditComment produces the fallback patched content when no
// target-specific rewriter applies (spec §4.4's "legacy audit-comment
// file" clause).
func LegacyAuditComment(incidentID, action, summary string) string {
	return fmt.Sprintf(
		"# Resilix automated remediation\n# Incident: %s\n# Action: %s\n# Summary: %s\n",
		incidentID, action, summary,
	)
}

func setMappingValue(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func yamlStringList(items []string) *yaml.Node {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, item := range items {
		node.Content = append(node.Content, yamlScalar(item))
	}
	return node
}

func yamlScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
