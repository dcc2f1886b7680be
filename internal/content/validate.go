package content

import (
	"errors"
	"fmt"
)

// Validate reports every structural problem in the document at once.
func (d *Document) Validate() error {
	var errs []error
	if len(d.Chapters) == 0 {
		return errors.New("content: no chapters")
	}
	seen := map[string]bool{}
	for ci, ch := range d.Chapters {
		if ch.ChapterID == "" {
			errs = append(errs, fmt.Errorf("chapter [%d]: missing chapter_id", ci))
			continue
		}
		if seen[ch.ChapterID] {
			errs = append(errs, fmt.Errorf("chapter %s: duplicate chapter_id", ch.ChapterID))
		}
		seen[ch.ChapterID] = true
		for si, sc := range ch.Scenes {
			path := fmt.Sprintf("chapter %s scene [%d]", ch.ChapterID, si)
			if sc.SceneID == "" {
				errs = append(errs, fmt.Errorf("%s: missing scene_id", path))
			}
			for oi, opt := range sc.Options {
				opath := fmt.Sprintf("%s option [%d]", path, oi)
				if opt.OptionID == "" {
					errs = append(errs, fmt.Errorf("%s: missing option_id", opath))
				}
				if opt.OptionText == "" {
					errs = append(errs, fmt.Errorf("%s: missing option_text", opath))
				}
				for mi, m := range opt.AllMappings() {
					if err := m.Validate(); err != nil {
						errs = append(errs, fmt.Errorf("%s mapping [%d]: %w", opath, mi, err))
					}
				}
			}
		}
	}
	return errors.Join(errs...)
}

func (m Mapping) Validate() error {
	return CheckMapping(m.Scale, m.Item, m.Weight, m.Confidence)
}

// CheckMapping enforces item ranges for known scales and [0,1] for weight
// and confidence. A nil weight or confidence is accepted.
func CheckMapping(scale string, item int, weight, confidence *float64) error {
	if item < 1 {
		return fmt.Errorf("item must be positive, got %d", item)
	}
	if n, ok := ScaleItems[NormalizeScale(scale)]; ok && item > n {
		return fmt.Errorf("%s item must be 1-%d, got %d", NormalizeScale(scale), n, item)
	}
	if weight != nil && (*weight < 0 || *weight > 1) {
		return fmt.Errorf("weight must be within [0,1], got %v", *weight)
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return fmt.Errorf("confidence must be within [0,1], got %v", *confidence)
	}
	return nil
}
