package engine

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed document.cue
var documentSchema string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// cue.Context is not safe for concurrent use.
	schemaMu sync.Mutex
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(documentSchema)
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile document schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Document"))
		if err := schemaDef.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Document: %w", err)
		}
	})
	return schemaCtx, schemaDef, schemaErr
}

// ValidateDocument checks the shape of a nested document tree: every key
// is a known field or an indexed group/member, and every value matches its
// field's format. Counter consistency is checked by Verify once the tree
// is stored.
//
// It satisfies store.Validator.
func ValidateDocument(tree map[string]any) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	v := ctx.Encode(tree)
	if err := v.Err(); err != nil {
		return &Error{Code: ErrCodeCorrupted, Message: "document cannot be encoded", Err: err}
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return &Error{Code: ErrCodeCorrupted, Message: "document shape: " + errors.Details(err, nil)}
	}
	return nil
}
