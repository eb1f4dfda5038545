package clean

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/plutusedu/webisync/internal/record"
	"github.com/plutusedu/webisync/internal/report"
	"github.com/plutusedu/webisync/internal/schema"
)

// CategoryRule maps a topic substring token onto a category label. Rules are
// evaluated in declaration order and the first match wins, so narrower tokens
// belong before broader ones in the config file.
type CategoryRule struct {
	Token    string `yaml:"token"`
	Category string `yaml:"category"`
}

// EnrichmentConfig carries the business mappings the metadata step needs.
type EnrichmentConfig struct {
	Categories         []CategoryRule    `yaml:"categories"`
	Conductors         map[string]string `yaml:"conductors"`
	ApprovedConductors []string          `yaml:"approved_conductors"`
}

// parentheticalRe strips trailing qualifiers like "(Host)" from panelist names.
var parentheticalRe = regexp.MustCompile(`\s*\([^)]*\)\s*`)

// ResolveMetadata extracts the webinar context from the Topic, Host and
// Panelist sections and applies the configured mappings.
func ResolveMetadata(sections map[string]report.Section, cfg EnrichmentConfig) record.WebinarMetadata {
	meta := record.WebinarMetadata{}

	if topic, ok := sections[schema.SectionTopic]; ok {
		meta.Topic = NormalizeSpace(topic.First("Topic"))
		meta.WebinarID = NormalizeSpace(topic.First("Webinar ID"))
		if meta.WebinarID == "" {
			meta.WebinarID = NormalizeSpace(topic.First("ID"))
		}
		meta.StartTime = firstOf(topic, "Actual Start Time", "Scheduled Time", "Scheduled Start Time")
		if at, _ := ParseDateTime(meta.StartTime); at != nil {
			meta.WebinarDate = FormatWebinarDate(at)
		}
	}

	meta.Category = resolveCategory(meta.Topic, cfg.Categories)
	meta.Conductor, meta.ConductorWarning = resolveConductor(sections, meta.WebinarID, cfg)
	return meta
}

func firstOf(sec report.Section, names ...string) string {
	for _, n := range names {
		if v := NormalizeSpace(sec.First(n)); v != "" {
			return v
		}
	}
	return ""
}

// resolveCategory matches topic text against the rule tokens, case
// insensitively, in rule order.
func resolveCategory(topic string, rules []CategoryRule) string {
	lowered := strings.ToLower(topic)
	for _, rule := range rules {
		if rule.Token != "" && strings.Contains(lowered, strings.ToLower(rule.Token)) {
			return rule.Category
		}
	}
	return ""
}

// resolveConductor picks the webinar conductor. An explicit webinar-id
// mapping wins; otherwise the panelist names are used, and finally the host
// names. Multi-person sessions join distinct names with a comma. Names pass
// through the approved-list canonicalization no matter where they came from,
// so a misspelled override still warns.
func resolveConductor(sections map[string]report.Section, webinarID string, cfg EnrichmentConfig) (string, string) {
	if name, ok := cfg.Conductors[webinarID]; ok {
		cleaned := NormalizeSpace(parentheticalRe.ReplaceAllString(name, " "))
		if cleaned != "" {
			canonical, approved := canonicalConductor(cleaned, cfg.ApprovedConductors)
			if approved {
				return canonical, ""
			}
			return canonical, fmt.Sprintf("Conductor %q not in approved list", canonical)
		}
	}

	names := sectionNames(sections, schema.SectionPanelists)
	if len(names) == 0 {
		names = sectionNames(sections, schema.SectionHosts)
	}
	if len(names) == 0 {
		return "", ""
	}

	var approved, unapproved, warnings []string
	for _, n := range names {
		canonical, ok := canonicalConductor(n, cfg.ApprovedConductors)
		if ok {
			approved = append(approved, canonical)
		} else {
			unapproved = append(unapproved, canonical)
			warnings = append(warnings, fmt.Sprintf("Conductor %q not in approved list", canonical))
		}
	}

	// Approved names lead so the primary speaker reads first.
	ordered := append(approved, unapproved...)
	return strings.Join(ordered, ", "), strings.Join(warnings, "; ")
}

// sectionNames collects distinct non-blank names from a people section in
// first-seen order.
func sectionNames(sections map[string]report.Section, label string) []string {
	sec, ok := sections[label]
	if !ok {
		return nil
	}
	col := sec.Column("User Name")
	if len(col) == 0 {
		col = sec.Column("User Name (Original Name)")
	}
	seen := map[string]bool{}
	var names []string
	for _, raw := range col {
		// A cell may carry several comma-joined names.
		for _, part := range strings.Split(raw, ",") {
			name := NormalizeSpace(parentheticalRe.ReplaceAllString(part, " "))
			if name == "" || seen[strings.ToLower(name)] {
				continue
			}
			seen[strings.ToLower(name)] = true
			names = append(names, name)
		}
	}
	return names
}

// canonicalConductor maps a raw name onto the approved list when it matches
// case-insensitively, otherwise proper-cases it. The bool reports approval.
func canonicalConductor(name string, approved []string) (string, bool) {
	for _, a := range approved {
		if strings.EqualFold(name, a) {
			return a, true
		}
	}
	return ProperCase(name), false
}

// StampAttendees writes the resolved webinar context onto every record.
func StampAttendees(records []record.AttendeeRecord, meta record.WebinarMetadata) {
	for i := range records {
		records[i].WebinarDate = meta.WebinarDate
		records[i].Category = meta.Category
		records[i].WebinarID = meta.WebinarID
		records[i].WebinarName = meta.Topic
		records[i].WebinarConductor = meta.Conductor
	}
}

// StampRegistrants writes the resolved webinar context onto every record.
func StampRegistrants(records []record.RegistrantRecord, meta record.WebinarMetadata) {
	for i := range records {
		records[i].WebinarID = meta.WebinarID
		records[i].WebinarName = meta.Topic
		records[i].WebinarDate = meta.WebinarDate
	}
}
