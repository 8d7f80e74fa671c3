package hierarchy

import "github.com/starford/notegen/internal/models"

// LevelSource reports how many hierarchy levels a template type carries.
// *schema.Catalog satisfies it.
type LevelSource interface {
	MaxLevelFor(templateType string) int
}

// Detector injects hierarchy labels into note metadata.
type Detector struct {
	levels LevelSource
}

// NewDetector returns a Detector that bounds injection with levels.
func NewDetector(levels LevelSource) *Detector {
	return &Detector{levels: levels}
}

// MaxLevel returns the deepest level injected for templateType.
//
// An empty template type injects only the program level. Callers that want
// course/class/module labels must pass the resolved template type.
func (d *Detector) MaxLevel(templateType string) int {
	if templateType == "" || d.levels == nil {
		return 1
	}
	n := d.levels.MaxLevelFor(templateType)
	if n > MaxDepth {
		n = MaxDepth
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Inject sets meta[level] for levels 1..MaxLevel(templateType) where info has
// a label. A non-empty value already present in meta is never overwritten.
// It returns the level names that were written.
func (d *Detector) Inject(meta *models.Metadata, info Info, templateType string) []string {
	var written []string
	limit := d.MaxLevel(templateType)
	for n := 1; n <= limit; n++ {
		label, ok := info.At(n)
		if !ok {
			break
		}
		if meta.SetIfEmpty(label.Level, label.Value) {
			written = append(written, label.Level)
		}
	}
	return written
}
