package schema

import "fmt"

// PrimitiveTag identifies the top-level shape of a Schema or Data value.
type PrimitiveTag string

const (
	TagInt      PrimitiveTag = "int"
	TagFloat    PrimitiveTag = "float"
	TagStr      PrimitiveTag = "str"
	TagBool     PrimitiveTag = "bool"
	TagDatetime PrimitiveTag = "datetime"
	TagTable    PrimitiveTag = "table"
	TagFile     PrimitiveTag = "file"
	TagModel    PrimitiveTag = "model"
)

// ColType is a column's semantic type inside a table. The five column types
// are exactly the scalar primitive tags; table/file/model cannot nest in a
// column.
type ColType string

const (
	ColInt      ColType = "int"
	ColFloat    ColType = "float"
	ColStr      ColType = "str"
	ColBool     ColType = "bool"
	ColDatetime ColType = "datetime"
)

// ModelCategory tags what family a trained estimator belongs to.
type ModelCategory string

const (
	CategoryRegression     ModelCategory = "regression"
	CategoryClassification ModelCategory = "classification"
	CategoryClustering     ModelCategory = "clustering"
)

// Valid reports whether t is one of the eight primitive tags.
func (t PrimitiveTag) Valid() bool {
	switch t {
	case TagInt, TagFloat, TagStr, TagBool, TagDatetime, TagTable, TagFile, TagModel:
		return true
	}
	return false
}

// Scalar reports whether t is one of the five scalar tags that map to a
// column type.
func (t PrimitiveTag) Scalar() bool {
	switch t {
	case TagInt, TagFloat, TagStr, TagBool, TagDatetime:
		return true
	}
	return false
}

// ToColType converts a scalar primitive tag to its column type.
func (t PrimitiveTag) ToColType() (ColType, error) {
	if !t.Scalar() {
		return "", fmt.Errorf("primitive tag %q has no column type", t)
	}
	return ColType(t), nil
}

// Valid reports whether c is one of the five column types.
func (c ColType) Valid() bool {
	switch c {
	case ColInt, ColFloat, ColStr, ColBool, ColDatetime:
		return true
	}
	return false
}

// ToPrimitiveTag converts a column type to its scalar primitive tag.
func (c ColType) ToPrimitiveTag() PrimitiveTag {
	return PrimitiveTag(c)
}

// Valid reports whether m is a known model category.
func (m ModelCategory) Valid() bool {
	switch m {
	case CategoryRegression, CategoryClassification, CategoryClustering:
		return true
	}
	return false
}
