package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixChart    = "chart"
	PrefixSnapshot = "snap"
	PrefixEntity   = "ent"
	PrefixLink     = "link"
	PrefixShape    = "shape"
	PrefixIcon     = "icon"
	PrefixOp       = "op"
	PrefixImport   = "imp"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewChartID() string    { return New(PrefixChart) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewEntityID() string   { return New(PrefixEntity) }
func NewLinkID() string     { return New(PrefixLink) }
func NewShapeID() string    { return New(PrefixShape) }
func NewIconID() string     { return New(PrefixIcon) }
func NewOpID() string       { return New(PrefixOp) }
func NewImportID() string   { return New(PrefixImport) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
