// SPDX-License-Identifier: MIT

package main

import (
	_ "embed"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed schema_policy.yaml
var schemaPolicyYAML []byte

// ColumnSpec is one output column of one table in one schema variant: its
// name, the literal SQL to use when the record has no value for it, and
// whether that absence must render as a bare NULL.
type ColumnSpec struct {
	Name      string `yaml:"name"`
	Default   string `yaml:"default"`
	NullQuote bool   `yaml:"null_quote"`
}

// TablePolicy is the ordered column set for one target table.
type TablePolicy struct {
	Columns []ColumnSpec `yaml:"columns"`
}

// SchemaVariant maps one target MediaWiki version onward to its per-table
// column policy, per spec.md §3's SchemaVariant and §4.9 (C9).
type SchemaVariant struct {
	MinVersion string                 `yaml:"min_mw_version"`
	Tables     map[string]TablePolicy `yaml:"tables"`
}

type schemaPolicyFile struct {
	Variants []SchemaVariant `yaml:"variants"`
}

var schemaPolicy schemaPolicyFile

func init() {
	if err := yaml.Unmarshal(schemaPolicyYAML, &schemaPolicy); err != nil {
		panic("invalid embedded schema_policy.yaml: " + err.Error())
	}
	sort.Slice(schemaPolicy.Variants, func(i, j int) bool {
		return compareMWVersion(schemaPolicy.Variants[i].MinVersion, schemaPolicy.Variants[j].MinVersion) < 0
	})
}

// policyFor returns the variant that applies to target, the latest entry
// whose min_mw_version is <= target. Returns SchemaUnsupported if target
// predates every known entry.
func policyFor(target string) (*SchemaVariant, error) {
	var chosen *SchemaVariant
	for i := range schemaPolicy.Variants {
		v := &schemaPolicy.Variants[i]
		if compareMWVersion(v.MinVersion, target) <= 0 {
			chosen = v
		}
	}
	if chosen == nil {
		return nil, newErr(KindSchemaUnsupported, "no schema policy covers mwversion %s", target)
	}
	return chosen, nil
}

// compareMWVersion compares two "major.minor" version strings numerically.
func compareMWVersion(a, b string) int {
	aMaj, aMin := splitMWVersion(a)
	bMaj, bMin := splitMWVersion(b)
	if aMaj != bMaj {
		return aMaj - bMaj
	}
	return aMin - bMin
}

func splitMWVersion(v string) (int, int) {
	parts := strings.SplitN(v, ".", 2)
	maj, _ := strconv.Atoi(parts[0])
	min := 0
	if len(parts) > 1 {
		min, _ = strconv.Atoi(parts[1])
	}
	return maj, min
}

type columnValue struct {
	known bool
	sql   string
}

func pageColumnValue(p *Page, name string) columnValue {
	switch name {
	case "page_id":
		return columnValue{true, sqlUint(uint64(p.ID))}
	case "page_namespace":
		return columnValue{true, sqlInt(int64(p.Namespace))}
	case "page_title":
		return columnValue{true, escapeSQLString(p.Title)}
	case "page_restrictions":
		return columnValue{true, escapeSQLString(p.Restrictions)}
	case "page_is_redirect":
		return columnValue{true, sqlBool(p.IsRedirect)}
	case "page_latest":
		return columnValue{true, sqlUint(uint64(p.LatestRevID))}
	case "page_len":
		return columnValue{true, sqlUint(uint64(p.Len))}
	default:
		return columnValue{}
	}
}

func revisionColumnValue(r *Revision, name string) columnValue {
	switch name {
	case "rev_id":
		return columnValue{true, sqlUint(uint64(r.ID))}
	case "rev_page":
		return columnValue{true, sqlUint(uint64(r.PageID))}
	case "rev_text_id":
		return columnValue{true, sqlUint(uint64(r.TextID))}
	case "rev_comment":
		return columnValue{true, escapeSQLString(r.Comment)}
	case "rev_user":
		return columnValue{true, sqlUint(uint64(r.UserID))}
	case "rev_user_text":
		return columnValue{true, escapeSQLString(r.UserText)}
	case "rev_timestamp":
		return columnValue{true, escapeSQLString(r.Timestamp)}
	case "rev_minor_edit":
		return columnValue{true, sqlBool(r.Minor)}
	case "rev_deleted":
		return columnValue{true, sqlUint(uint64(r.DeletedFlags))}
	case "rev_len":
		return columnValue{true, sqlUint(uint64(r.Len))}
	case "rev_parent_id":
		return columnValue{true, sqlUint(uint64(r.ParentID))}
	case "rev_sha1":
		return columnValue{true, escapeSQLString(r.Sha1B36)}
	case "rev_content_model":
		if r.Model == "" {
			return columnValue{}
		}
		return columnValue{true, escapeSQLString(r.Model)}
	case "rev_content_format":
		if r.Format == "" {
			return columnValue{}
		}
		return columnValue{true, escapeSQLString(r.Format)}
	default:
		return columnValue{}
	}
}

func textColumnValue(t *Text, name string) columnValue {
	switch name {
	case "old_id":
		return columnValue{true, sqlUint(uint64(t.ID))}
	case "old_text":
		return columnValue{true, escapeSQLBytes(t.Content)}
	case "old_flags":
		return columnValue{true, escapeSQLString(t.Flags)}
	default:
		return columnValue{}
	}
}

func resolveColumn(col ColumnSpec, v columnValue) string {
	if v.known {
		return v.sql
	}
	if col.NullQuote {
		return sqlNull
	}
	if col.Default != "" {
		return col.Default
	}
	return sqlNull
}

// formatRow renders one ordered tuple "(v1,v2,...)" for table using the
// column policy in variant and a per-column value lookup function.
func formatRow(policy TablePolicy, lookup func(name string) columnValue) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, col := range policy.Columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(resolveColumn(col, lookup(col.Name)))
	}
	b.WriteByte(')')
	return b.String()
}

func formatPageRow(p *Page, variant *SchemaVariant) (string, error) {
	policy, ok := variant.Tables["page"]
	if !ok {
		return "", newErr(KindSchemaUnsupported, "no page table policy for mwversion %s", variant.MinVersion)
	}
	return formatRow(policy, func(name string) columnValue { return pageColumnValue(p, name) }), nil
}

func formatRevisionRow(r *Revision, variant *SchemaVariant) (string, error) {
	policy, ok := variant.Tables["revision"]
	if !ok {
		return "", newErr(KindSchemaUnsupported, "no revision table policy for mwversion %s", variant.MinVersion)
	}
	return formatRow(policy, func(name string) columnValue { return revisionColumnValue(r, name) }), nil
}

func formatTextRow(t *Text, variant *SchemaVariant) (string, error) {
	policy, ok := variant.Tables["text"]
	if !ok {
		return "", newErr(KindSchemaUnsupported, "no text table policy for mwversion %s", variant.MinVersion)
	}
	return formatRow(policy, func(name string) columnValue { return textColumnValue(t, name) }), nil
}
