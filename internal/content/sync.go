package content

import (
	"context"
	"fmt"
)

// Catalog is the datastore side of the content tables.
type Catalog interface {
	UpsertChapter(ctx context.Context, chapterID, title string) error
	UpsertScene(ctx context.Context, sceneID, chapterID, title string) error
	UpsertOption(ctx context.Context, chapterID, sceneID string, opt Option) error
	ReplaceOptionMappings(ctx context.Context, sceneID, optionID string, mappings []Mapping) error
}

type SyncStats struct {
	Chapters int `json:"chapters"`
	Scenes   int `json:"scenes"`
	Options  int `json:"options"`
	Mappings int `json:"mappings"`
}

// Sync writes the content into the catalog. Parents are written before
// children so foreign keys hold, and each option's mappings are replaced
// so repeated syncs do not accumulate rows.
func (s *Store) Sync(ctx context.Context, cat Catalog) (SyncStats, error) {
	var st SyncStats
	for _, ch := range s.chapters {
		if err := cat.UpsertChapter(ctx, ch.ChapterID, ch.Title); err != nil {
			return st, fmt.Errorf("chapter %s: %w", ch.ChapterID, err)
		}
		st.Chapters++
		for _, sc := range ch.Scenes {
			title := sc.Title
			if title == "" {
				title = sc.SceneID
			}
			if err := cat.UpsertScene(ctx, sc.SceneID, ch.ChapterID, title); err != nil {
				return st, fmt.Errorf("scene %s: %w", sc.SceneID, err)
			}
			st.Scenes++
			for _, opt := range sc.Options {
				if err := cat.UpsertOption(ctx, ch.ChapterID, sc.SceneID, opt); err != nil {
					return st, fmt.Errorf("option %s: %w", opt.OptionID, err)
				}
				st.Options++
				ms := opt.AllMappings()
				if err := cat.ReplaceOptionMappings(ctx, sc.SceneID, opt.OptionID, ms); err != nil {
					return st, fmt.Errorf("option %s mappings: %w", opt.OptionID, err)
				}
				st.Mappings += len(ms)
			}
		}
	}
	return st, nil
}
