package extension

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/janelia-flyem/nifti/nifti"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schemas holds compiled JSON schemas for extension codes whose payloads are JSON.
// Records with codes lacking a schema are not checked.  It is safe for concurrent use.
type Schemas struct {
	mu     sync.RWMutex
	byCode map[int32]*jsonschema.Schema
}

// NewSchemas returns an empty set of schemas.
func NewSchemas() *Schemas {
	return &Schemas{byCode: make(map[int32]*jsonschema.Schema)}
}

// Set compiles the schema text and uses it for the given code.
func (s *Schemas) Set(code int32, schema string) error {
	sch, err := jsonschema.CompileString(fmt.Sprintf("ecode-%d.json", code), schema)
	if err != nil {
		return fmt.Errorf("compiling schema for extension code %d: %v", code, err)
	}
	s.mu.Lock()
	s.byCode[code] = sch
	s.mu.Unlock()
	return nil
}

// Load reads a schema file and uses it for the given code.
func (s *Schemas) Load(code int32, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return nifti.NewIOError("read schema", path, err)
	}
	return s.Set(code, string(b))
}

// Codes returns the codes with a schema, in increasing order.
func (s *Schemas) Codes() []int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]int32, 0, len(s.byCode))
	for code := range s.byCode {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Validate checks a record's payload against the schema registered for its code.
func (s *Schemas) Validate(rec Record) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	sch, found := s.byCode[rec.Code]
	s.mu.RUnlock()
	if !found {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(rec.Data, &v); err != nil {
		return fmt.Errorf("%s is not JSON (%v): %w", rec, err, nifti.ErrInvalidExtension)
	}
	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%s: %v: %w", rec, err, nifti.ErrInvalidExtension)
	}
	return nil
}
