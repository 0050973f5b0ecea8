// Package detect finds canonical property names that the registry does not
// know yet and registers them as default definitions.
package detect

import (
	"context"
	"errors"

	"github.com/ppiankov/proptable/internal/model"
	"github.com/ppiankov/proptable/internal/store"
)

// Registrar adds default definitions
type Registrar interface {
	AddPropertyIfAbsent(ctx context.Context, key model.PropertyKey) (bool, error)
}

// Detector compares a whole import batch against the known names
type Detector struct{}

// NewDetector creates a detector
func NewDetector() *Detector {
	return &Detector{}
}

// Detect returns the distinct keys of batch missing from known, ordered by
// name then language. Empty names are ignored.
func (d *Detector) Detect(batch []model.PropertyKey, known map[model.PropertyKey]struct{}) []model.PropertyKey {
	seen := make(map[model.PropertyKey]struct{})
	var unknown []model.PropertyKey

	for _, k := range batch {
		if k.Name == "" {
			continue
		}
		if _, ok := known[k]; ok {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unknown = append(unknown, k)
	}

	model.SortKeys(unknown)
	return unknown
}

// RegisterReport summarizes a registration pass
type RegisterReport struct {
	Created  []model.PropertyKey // Definitions that did not exist before
	Existing int                 // Keys already present (no-op)
	Outcomes []model.Outcome     // Failed registrations
}

// Register upserts a default definition for each key. Failures are reported
// per key and do not stop the pass, except when the store is unavailable.
func (d *Detector) Register(ctx context.Context, r Registrar, keys []model.PropertyKey) RegisterReport {
	var report RegisterReport

	for i, k := range keys {
		created, err := r.AddPropertyIfAbsent(ctx, k)
		if err != nil {
			report.Outcomes = append(report.Outcomes, model.Failed("add_property", k.String(), err))
			if errors.Is(err, store.ErrUnavailable) {
				for _, rest := range keys[i+1:] {
					report.Outcomes = append(report.Outcomes, model.Failed("add_property", rest.String(), err))
				}
				break
			}
			continue
		}
		if created {
			report.Created = append(report.Created, k)
		} else {
			report.Existing++
		}
	}

	return report
}
