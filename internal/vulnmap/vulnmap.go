// Package vulnmap normalizes external vulnerability scanner output (OSV,
// pip-audit) into a unified finding shape and maps each finding to OWASP
// LLM Top-10 and Agentic-AI categories through a declarative rule engine.
package vulnmap

import (
	"sort"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/agentic-radar/agentic-radar/pkg/owasp"
)

// Finding is the unified representation of a dependency vulnerability
// sourced from an external scanner.
type Finding struct {
	Package           string         `json:"package"`
	Version           string         `json:"version"`
	Ecosystem         string         `json:"ecosystem,omitempty"`
	VulnerabilityID   string         `json:"vulnerability_id"`
	Severity          string         `json:"severity,omitempty"`
	Summary           string         `json:"summary,omitempty"`
	Aliases           []string       `json:"aliases,omitempty"`
	FixVersions       []string       `json:"fix_versions,omitempty"`
	References        []string       `json:"references,omitempty"`
	Location          string         `json:"location,omitempty"`
	Source            string         `json:"source,omitempty"`
	LLMCodes          []string       `json:"owasp_llm_codes"`
	AgenticCodes      []string       `json:"owasp_agentic_codes"`
	LLMCategories     []string       `json:"owasp_llm_categories"`
	AgenticCategories []string       `json:"owasp_agentic_categories"`
	Metadata          map[string]any `json:"metadata,omitempty"`
}

// MappingRule maps vulnerability attributes to OWASP categories. A rule
// matches only when every provided constraint holds.
type MappingRule struct {
	LLMCodes        []string
	AgenticCodes    []string
	Keywords        []string
	Package         string
	Ecosystem       string
	IDPrefixes      []string
	SeverityAtLeast string
}

// Matches reports whether the rule applies to the finding.
func (r MappingRule) Matches(finding Finding) bool {
	if r.Package != "" && normalize(finding.Package) != normalize(r.Package) {
		return false
	}
	if r.Ecosystem != "" && normalize(finding.Ecosystem) != normalize(r.Ecosystem) {
		return false
	}
	if len(r.IDPrefixes) > 0 && !r.matchesIDPrefix(finding) {
		return false
	}
	if len(r.Keywords) > 0 {
		haystack := strings.ToLower(finding.Summary + " " + strings.Join(finding.Aliases, " "))
		matched := false
		for _, keyword := range r.Keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if r.SeverityAtLeast != "" {
		if owasp.SeverityRank(finding.Severity) < owasp.SeverityRank(r.SeverityAtLeast) {
			return false
		}
	}
	return true
}

func (r MappingRule) matchesIDPrefix(finding Finding) bool {
	identifier := strings.ToUpper(finding.VulnerabilityID)
	for _, prefix := range r.IDPrefixes {
		upper := strings.ToUpper(prefix)
		if strings.HasPrefix(identifier, upper) {
			return true
		}
		for _, alias := range finding.Aliases {
			if strings.HasPrefix(strings.ToUpper(alias), upper) {
				return true
			}
		}
	}
	return false
}

// DefaultRules is the contractual keyword rule table shared by all
// scanner integrations.
var DefaultRules = []MappingRule{
	{LLMCodes: []string{"LLM01"}, AgenticCodes: []string{"AA01"},
		Keywords: []string{"prompt injection", "prompt-injection"}},
	{LLMCodes: []string{"LLM07"}, AgenticCodes: []string{"AA02"},
		Keywords: []string{"remote code execution", "command injection", "arbitrary command"}},
	{LLMCodes: []string{"LLM06"}, AgenticCodes: []string{"AA04"},
		Keywords: []string{"information disclosure", "sensitive data", "secret exposure"}},
	{LLMCodes: []string{"LLM04"}, AgenticCodes: []string{"AA10"},
		Keywords: []string{"denial of service", "dos", "resource exhaustion"}},
	{LLMCodes: []string{"LLM07"}, AgenticCodes: []string{"AA03"},
		Keywords: []string{"ssrf", "server-side request forgery", "unvalidated request"}},
	{LLMCodes: []string{"LLM05"}, AgenticCodes: []string{"AA06"},
		Keywords: []string{"supply chain", "dependency", "package takeover"}},
	{LLMCodes: []string{"LLM07"}, AgenticCodes: []string{"AA07"},
		Keywords: []string{"credential", "secret", "token leak"}},
}

// Mapper applies OWASP mapping rules to vulnerability findings.
type Mapper struct {
	rules               []MappingRule
	defaultLLMCodes     []string
	defaultAgenticCodes []string
}

// NewMapper creates a Mapper with the default rule table and defaults.
func NewMapper() *Mapper {
	return &Mapper{
		rules:               DefaultRules,
		defaultLLMCodes:     []string{"LLM05"},
		defaultAgenticCodes: []string{"AA06"},
	}
}

// WithRules replaces the rule table.
func (m *Mapper) WithRules(rules []MappingRule) *Mapper {
	m.rules = rules
	return m
}

// Apply assigns OWASP categories to the finding: the union of every
// matching rule's codes, or the defaults when nothing matches. Codes are
// stored sorted ascending alongside their formatted titles.
func (m *Mapper) Apply(finding Finding) Finding {
	llmCodes := map[string]struct{}{}
	agenticCodes := map[string]struct{}{}
	for _, rule := range m.rules {
		if rule.Matches(finding) {
			for _, code := range rule.LLMCodes {
				llmCodes[code] = struct{}{}
			}
			for _, code := range rule.AgenticCodes {
				agenticCodes[code] = struct{}{}
			}
		}
	}
	if len(llmCodes) == 0 {
		for _, code := range m.defaultLLMCodes {
			llmCodes[code] = struct{}{}
		}
	}
	if len(agenticCodes) == 0 {
		for _, code := range m.defaultAgenticCodes {
			agenticCodes[code] = struct{}{}
		}
	}

	finding.LLMCodes = sortedCodes(llmCodes)
	finding.AgenticCodes = sortedCodes(agenticCodes)
	finding.LLMCategories = formatCodes(finding.LLMCodes, owasp.LLMCategoryTitles)
	finding.AgenticCategories = formatCodes(finding.AgenticCodes, owasp.AgenticCategoryTitles)
	return finding
}

func sortedCodes(codes map[string]struct{}) []string {
	out := make([]string, 0, len(codes))
	for code := range codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func formatCodes(codes []string, titles map[string]string) []string {
	out := make([]string, len(codes))
	for i, code := range codes {
		out[i] = owasp.FormatCategory(code, titles)
	}
	return out
}

// FromOSV normalizes an osv-scanner JSON payload. One finding is emitted
// per (package, version, vulnerability) triple.
func (m *Mapper) FromOSV(payload map[string]any) []Finding {
	var findings []Finding
	for _, rawResult := range asSlice(payload["results"]) {
		result := asMap(rawResult)
		sourcePath := extractSourcePath(asMap(result["source"]))
		for _, rawPackage := range asSlice(result["packages"]) {
			pkg := asMap(rawPackage)
			meta := asMap(pkg["package"])
			packageName := stringOr(meta["name"], "unknown")
			ecosystem := stringOr(meta["ecosystem"], "")
			versions := stringSlice(pkg["versions"])
			if len(versions) == 0 {
				versions = []string{"unknown"}
			}
			for _, rawVuln := range asSlice(pkg["vulnerabilities"]) {
				vuln := asMap(rawVuln)
				aliases := stringSlice(vuln["aliases"])
				vulnID := stringOr(vuln["id"], "")
				if vulnID == "" {
					if len(aliases) > 0 {
						vulnID = aliases[0]
					} else {
						vulnID = packageName
					}
				}
				summary := stringOr(vuln["summary"], stringOr(vuln["details"], ""))
				severity := extractOSVSeverity(vuln)
				fixVersions := extractOSVFixVersions(vuln)
				references := extractReferences(vuln)
				for _, version := range versions {
					finding := Finding{
						Package:         packageName,
						Version:         version,
						Ecosystem:       ecosystem,
						VulnerabilityID: vulnID,
						Severity:        severity,
						Summary:         summary,
						Aliases:         aliases,
						FixVersions:     fixVersions,
						References:      references,
						Location:        sourcePath,
						Source:          "osv",
						Metadata:        map[string]any{"source": "osv", "path": sourcePath},
					}
					findings = append(findings, m.Apply(finding))
				}
			}
		}
	}
	return findings
}

// FromPipAudit normalizes a pip-audit JSON payload. One finding is
// emitted per (dependency, vulnerability) pair; the ecosystem is fixed to
// PyPI.
func (m *Mapper) FromPipAudit(payload map[string]any) []Finding {
	var findings []Finding
	for _, rawDep := range asSlice(payload["dependencies"]) {
		dep := asMap(rawDep)
		packageName := stringOr(dep["name"], "unknown")
		version := stringOr(dep["version"], "unknown")
		for _, rawVuln := range asSlice(dep["vulns"]) {
			vuln := asMap(rawVuln)
			vulnID := stringOr(vuln["id"], packageName)
			finding := Finding{
				Package:         packageName,
				Version:         version,
				Ecosystem:       "PyPI",
				VulnerabilityID: vulnID,
				Severity:        strings.ToUpper(stringOr(vuln["severity"], "")),
				Summary:         stringOr(vuln["description"], stringOr(vuln["summary"], "")),
				Aliases:         stringSlice(vuln["aliases"]),
				FixVersions:     sortVersions(stringSlice(vuln["fix_versions"])),
				References:      stringSlice(vuln["references"]),
				Location:        "pip-audit",
				Source:          "pip-audit",
				Metadata:        map[string]any{"source": "pip-audit"},
			}
			findings = append(findings, m.Apply(finding))
		}
	}
	return findings
}

// Merge deduplicates findings across sources, keyed on (lowercase
// package, uppercase vulnerability id). Merged records union their
// aliases, fix versions and references, keep the higher severity and the
// first non-empty summary/location, and are re-run through the rules.
func (m *Mapper) Merge(groups ...[]Finding) []Finding {
	type key struct {
		pkg string
		id  string
	}
	merged := map[key]Finding{}
	var order []key
	for _, group := range groups {
		for _, finding := range group {
			k := key{strings.ToLower(finding.Package), strings.ToUpper(finding.VulnerabilityID)}
			existing, ok := merged[k]
			if !ok {
				merged[k] = finding
				order = append(order, k)
				continue
			}
			merged[k] = m.mergePair(existing, finding)
		}
	}
	out := make([]Finding, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out
}

func (m *Mapper) mergePair(left, right Finding) Finding {
	merged := left
	merged.Aliases = unionStrings(left.Aliases, right.Aliases)
	merged.FixVersions = sortVersions(unionStrings(left.FixVersions, right.FixVersions))
	merged.References = unionStrings(left.References, right.References)
	merged.Severity = pickMoreSevere(left.Severity, right.Severity)
	if merged.Summary == "" {
		merged.Summary = right.Summary
	}
	if merged.Location == "" {
		merged.Location = right.Location
	}
	if merged.Version == "" {
		merged.Version = right.Version
	}
	if merged.Ecosystem == "" {
		merged.Ecosystem = right.Ecosystem
	}
	if merged.Source == "" {
		merged.Source = right.Source
	}
	metadata := map[string]any{}
	for k, v := range left.Metadata {
		metadata[k] = v
	}
	for k, v := range right.Metadata {
		metadata[k] = v
	}
	merged.Metadata = metadata
	return m.Apply(merged)
}

func pickMoreSevere(left, right string) string {
	bestLevel := 0
	best := ""
	fallback := ""
	for _, candidate := range []string{left, right} {
		lower := strings.ToLower(candidate)
		if candidate != "" && fallback == "" {
			fallback = strings.ToUpper(candidate)
		}
		if level := owasp.SeverityRank(lower); level > bestLevel && candidate != "" {
			bestLevel = level
			best = strings.ToUpper(candidate)
		}
	}
	if best != "" {
		return best
	}
	return fallback
}

// extractOSVSeverity derives a severity label from the maximum CVSS
// numeric score; anything after a "/" in a score string is ignored. When
// no numeric score exists, database_specific.severity is used upper-cased.
func extractOSVSeverity(vuln map[string]any) string {
	maxScore := -1.0
	for _, rawEntry := range asSlice(vuln["severity"]) {
		entry := asMap(rawEntry)
		score, ok := entry["score"].(string)
		if !ok {
			continue
		}
		if idx := strings.Index(score, "/"); idx >= 0 {
			score = score[:idx]
		}
		if value, err := strconv.ParseFloat(score, 64); err == nil && value > maxScore {
			maxScore = value
		}
	}
	if maxScore >= 0 {
		return owasp.SeverityFromScore(maxScore)
	}
	dbSpecific := asMap(vuln["database_specific"])
	if severity, ok := dbSpecific["severity"].(string); ok {
		return strings.ToUpper(severity)
	}
	return ""
}

// extractOSVFixVersions collects fix versions from every place OSV
// reports them: top-level lists, database_specific and affected-range
// "fixed" events.
func extractOSVFixVersions(vuln map[string]any) []string {
	versions := map[string]struct{}{}
	collect := func(node map[string]any) {
		for _, key := range []string{"fix_versions", "fixed_versions"} {
			for _, version := range stringSlice(node[key]) {
				versions[version] = struct{}{}
			}
		}
	}
	collect(vuln)
	collect(asMap(vuln["database_specific"]))
	for _, rawAffected := range asSlice(vuln["affected"]) {
		affected := asMap(rawAffected)
		for _, rawRange := range asSlice(affected["ranges"]) {
			rangeEntry := asMap(rawRange)
			for _, rawEvent := range asSlice(rangeEntry["events"]) {
				event := asMap(rawEvent)
				if fixed, ok := event["fixed"].(string); ok {
					versions[fixed] = struct{}{}
				}
			}
		}
	}
	out := make([]string, 0, len(versions))
	for version := range versions {
		out = append(out, version)
	}
	return sortVersions(out)
}

func extractReferences(vuln map[string]any) []string {
	var references []string
	for _, rawRef := range asSlice(vuln["references"]) {
		ref := asMap(rawRef)
		if url, ok := ref["url"].(string); ok && url != "" {
			references = append(references, url)
		}
	}
	return references
}

func extractSourcePath(source map[string]any) string {
	for _, key := range []string{"path", "file", "name"} {
		if value, ok := source[key].(string); ok {
			return value
		}
	}
	return ""
}

// sortVersions orders version strings semantically when every entry
// parses as semver, lexically otherwise.
func sortVersions(versions []string) []string {
	out := append([]string(nil), versions...)
	parsed := make([]*semver.Version, len(out))
	allSemver := true
	for i, version := range out {
		v, err := semver.NewVersion(version)
		if err != nil {
			allSemver = false
			break
		}
		parsed[i] = v
	}
	if allSemver && len(out) > 1 {
		sort.Slice(parsed, func(i, j int) bool { return parsed[i].LessThan(parsed[j]) })
		for i, v := range parsed {
			out[i] = v.Original()
		}
		return out
	}
	sort.Strings(out)
	return out
}

func unionStrings(left, right []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, value := range append(append([]string{}, left...), right...) {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func asMap(value any) map[string]any {
	if typed, ok := value.(map[string]any); ok {
		return typed
	}
	return map[string]any{}
}

func asSlice(value any) []any {
	if typed, ok := value.([]any); ok {
		return typed
	}
	return nil
}

func stringSlice(value any) []string {
	var out []string
	for _, item := range asSlice(value) {
		if text, ok := item.(string); ok {
			out = append(out, text)
		}
	}
	return out
}

func stringOr(value any, fallback string) string {
	if text, ok := value.(string); ok && text != "" {
		return text
	}
	return fallback
}
