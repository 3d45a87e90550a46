package schema

// Pattern is a port's acceptance predicate over schemas. A schema is
// accepted when its top tag is in Tags and every declared sub-constraint
// holds:
//
//   - Columns: each listed column must exist in a TABLE schema with one of
//     the allowed column types;
//   - Formats: a FILE schema's format must be listed;
//   - Categories: a MODEL schema's category must be listed.
//
// Empty sub-constraint sets mean "no constraint".
type Pattern struct {
	Tags       []PrimitiveTag       `json:"tags"`
	Columns    map[string][]ColType `json:"columns,omitempty"`
	Formats    []string             `json:"formats,omitempty"`
	Categories []ModelCategory      `json:"categories,omitempty"`
}

// Accept builds a pattern allowing the given tags with no sub-constraints.
func Accept(tags ...PrimitiveTag) Pattern {
	return Pattern{Tags: tags}
}

// AcceptTable builds a pattern for tables with required column constraints.
func AcceptTable(columns map[string][]ColType) Pattern {
	return Pattern{Tags: []PrimitiveTag{TagTable}, Columns: columns}
}

// AcceptAnyScalar builds a pattern allowing the five scalar tags.
func AcceptAnyScalar() Pattern {
	return Accept(TagInt, TagFloat, TagStr, TagBool, TagDatetime)
}

// AcceptNumeric builds a pattern allowing int and float scalars.
func AcceptNumeric() Pattern {
	return Accept(TagInt, TagFloat)
}

// Contains reports whether s satisfies the pattern.
func (p Pattern) Contains(s *Schema) bool {
	if s == nil {
		return false
	}

	tagOK := false
	for _, t := range p.Tags {
		if t == s.Tag {
			tagOK = true
			break
		}
	}
	if !tagOK {
		return false
	}

	switch s.Tag {
	case TagTable:
		if s.Table == nil {
			return false
		}
		for name, allowed := range p.Columns {
			ct, ok := s.Table.TypeOf(name)
			if !ok {
				return false
			}
			if !colTypeIn(ct, allowed) {
				return false
			}
		}
	case TagFile:
		if s.File == nil {
			return false
		}
		if len(p.Formats) > 0 && !stringIn(s.File.Format, p.Formats) {
			return false
		}
	case TagModel:
		if s.Model == nil {
			return false
		}
		if len(p.Categories) > 0 && !categoryIn(s.Model.Category, p.Categories) {
			return false
		}
	}

	return true
}

func colTypeIn(ct ColType, allowed []ColType) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if a == ct {
			return true
		}
	}
	return false
}

func stringIn(s string, list []string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func categoryIn(c ModelCategory, list []ModelCategory) bool {
	for _, v := range list {
		if v == c {
			return true
		}
	}
	return false
}
