package validation

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/julianstephens/identityforge/internal/constants"
	"github.com/julianstephens/identityforge/internal/models"
)

// ConflictType represents the type of validation conflict
type ConflictType string

const (
	ConflictDuplicateIdentityName ConflictType = "duplicate_identity_name"
	ConflictDuplicateHabitName    ConflictType = "duplicate_habit_name"
	ConflictOrphanedHabit         ConflictType = "orphaned_habit"
)

// Conflict represents a detected problem in stored identities or habits
type Conflict struct {
	Type        ConflictType
	Description string
	Items       []string
	IDs         []uuid.UUID
}

// Result contains all detected conflicts
type Result struct {
	Conflicts []Conflict
}

// HasConflicts returns true if there are any conflicts
func (r *Result) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// FormatReport returns a human-readable report of all conflicts
func (r *Result) FormatReport() string {
	if !r.HasConflicts() {
		return "No conflicts detected."
	}

	var b strings.Builder
	b.WriteString("Conflicts detected:\n")
	for _, c := range r.Conflicts {
		fmt.Fprintf(&b, "- %s\n", c.Description)
	}
	return b.String()
}

// Validator checks stored rows for problems the schema does not prevent
type Validator struct{}

// New creates a new Validator
func New() *Validator {
	return &Validator{}
}

// Validate checks active identities and active habits. Names are compared
// case-insensitively after trimming.
func (v *Validator) Validate(identities []models.Identity, habits []models.Habit) Result {
	result := Result{Conflicts: []Conflict{}}

	active := make(map[uuid.UUID]models.Identity, len(identities))
	byName := make(map[string][]models.Identity)
	for _, i := range identities {
		if !i.Active() {
			continue
		}
		active[i.ID] = i
		key := foldName(i.Name)
		byName[key] = append(byName[key], i)
	}

	for _, key := range sortedKeys(byName) {
		dupes := byName[key]
		if len(dupes) < 2 {
			continue
		}
		ids := make([]uuid.UUID, 0, len(dupes))
		for _, i := range dupes {
			ids = append(ids, i.ID)
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictDuplicateIdentityName,
			Description: fmt.Sprintf("Duplicate identity name: %q (%d identities)", dupes[0].Name, len(dupes)),
			Items:       []string{dupes[0].Name},
			IDs:         ids,
		})
	}

	habitNames := make(map[string][]models.Habit)
	for _, h := range habits {
		if !h.Active() {
			continue
		}
		owner, ok := active[h.IdentityID]
		if !ok {
			result.Conflicts = append(result.Conflicts, Conflict{
				Type:        ConflictOrphanedHabit,
				Description: fmt.Sprintf("Habit %q belongs to a deleted identity (%s)", h.Name, h.IdentityID),
				Items:       []string{h.Name},
				IDs:         []uuid.UUID{h.ID},
			})
			continue
		}
		key := owner.ID.String() + "/" + foldName(h.Name)
		habitNames[key] = append(habitNames[key], h)
	}

	for _, key := range sortedKeys(habitNames) {
		dupes := habitNames[key]
		if len(dupes) < 2 {
			continue
		}
		owner := active[dupes[0].IdentityID]
		ids := make([]uuid.UUID, 0, len(dupes))
		for _, h := range dupes {
			ids = append(ids, h.ID)
		}
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictDuplicateHabitName,
			Description: fmt.Sprintf("Identity %q has %d habits named %q", owner.Name, len(dupes), dupes[0].Name),
			Items:       []string{owner.Name, dupes[0].Name},
			IDs:         ids,
		})
	}

	return result
}

// ValidateName trims name and checks it is usable as an identity or habit
// name. kind names the entity in error messages.
func ValidateName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s name cannot be empty", kind)
	}
	if n := utf8.RuneCountInString(name); n > constants.MaxNameLength {
		return "", fmt.Errorf("%s name is too long (%d characters, max %d)", kind, n, constants.MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%s name cannot contain control characters", kind)
		}
	}
	return name, nil
}

func foldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
