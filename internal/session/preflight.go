package session

import "fmt"

// ConcernKind identifies something the user should confirm before importing.
type ConcernKind string

const (
	ConcernLongImport   ConcernKind = "long-import"
	ConcernMissingParts ConcernKind = "missing-parts"
)

// Concern is one pre-import confirmation prompt.
type Concern struct {
	Kind    ConcernKind `json:"kind" yaml:"kind"`
	Message string      `json:"message" yaml:"message"`
}

// Preflight lists the confirmations an import of the validated document
// needs: a long import when the unique part count exceeds the threshold, and
// missing parts when any referenced part is not in the library. Concerns
// come in the order they should be confirmed.
func (s *Session) Preflight() ([]Concern, error) {
	if !s.reg.Validated() {
		return nil, s.setupError(NotReady, MsgNotReady, nil)
	}

	var concerns []Concern
	sum := s.reg.Summary()
	if sum.Unique > s.opts.LongImportThreshold {
		concerns = append(concerns, Concern{
			Kind:    ConcernLongImport,
			Message: fmt.Sprintf("%d unique parts will be imported; this may take a while", sum.Unique),
		})
	}
	if sum.Missing > 0 {
		concerns = append(concerns, Concern{
			Kind:    ConcernMissingParts,
			Message: fmt.Sprintf("%d parts were not found in the library and will be skipped", sum.Missing),
		})
	}
	return concerns, nil
}
