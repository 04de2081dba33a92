package diff

import "github.com/everstacklabs/modelmeter/internal/catalog"

// ChangeSet represents the difference between two successive pricing lists.
type ChangeSet struct {
	New       []ModelChange `json:"new,omitempty"`
	Removed   []ModelChange `json:"removed,omitempty"`
	Updated   []ModelUpdate `json:"updated,omitempty"`
	Unchanged int           `json:"unchanged"`
}

// ModelChange represents a model that appeared or disappeared.
type ModelChange struct {
	Name   string                `json:"name"`
	Record catalog.PricingRecord `json:"record"`
}

// ModelUpdate represents a model present in both lists with field changes.
type ModelUpdate struct {
	Name    string                `json:"name"`
	Record  catalog.PricingRecord `json:"record"`
	Changes []FieldChange         `json:"changes"`
}

// FieldChange is a single changed field.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
	// Large marks price moves beyond LargePriceDelta.
	Large bool `json:"large,omitempty"`
}

// HasChanges reports whether the changeset has any modifications.
func (cs *ChangeSet) HasChanges() bool {
	return len(cs.New) > 0 || len(cs.Updated) > 0 || len(cs.Removed) > 0
}

// TotalChanged returns the count of new + updated models.
func (cs *ChangeSet) TotalChanged() int {
	return len(cs.New) + len(cs.Updated)
}

// LargeMoves returns the updates that contain at least one large price move.
func (cs *ChangeSet) LargeMoves() []ModelUpdate {
	var out []ModelUpdate
	for _, u := range cs.Updated {
		for _, c := range u.Changes {
			if c.Large {
				out = append(out, u)
				break
			}
		}
	}
	return out
}
