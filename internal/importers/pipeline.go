package importers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/deepr/internal/database"
	"github.com/mrlokans/deepr/internal/database/links"
	"github.com/mrlokans/deepr/internal/database/profiles"
	"github.com/mrlokans/deepr/internal/database/tags"
	"github.com/mrlokans/deepr/internal/entities"
	"github.com/mrlokans/deepr/internal/formats"
	"github.com/mrlokans/deepr/internal/metrics"
)

var (
	ErrReadSource     = errors.New("failed to read import source")
	ErrDecode         = errors.New("failed to decode import source")
	ErrUnknownProfile = errors.New("unknown profile")
	ErrCommit         = errors.New("failed to store imported links")
)

// Candidate is one decoded entry awaiting commit.
type Candidate struct {
	// Raw is the link exactly as it appeared in the source.
	Raw string `json:"raw"`
	formats.Record

	Valid     bool `json:"valid"`
	Duplicate bool `json:"duplicate"`
	Selected  bool `json:"selected"`
}

// Preview is the decoded, annotated content of one source document.
type Preview struct {
	Format     formats.Format `json:"format"`
	Candidates []Candidate    `json:"candidates"`
	// Malformed counts rows the decoder could not turn into a record.
	Malformed int `json:"malformed"`
}

type Options struct {
	Format formats.Format
	// AllowDuplicates imports links already stored under the profile.
	AllowDuplicates bool
}

type Outcome struct {
	Imported   int    `json:"imported"`
	Skipped    int    `json:"skipped"`
	Duplicates int    `json:"duplicates"`
	Error      string `json:"error,omitempty"`
}

// Recorder receives the result of every import run.
type Recorder interface {
	LogImport(profileID uint, format string, imported, skipped, duplicates int, err error)
}

type Pipeline struct {
	db       *database.Database
	recorder Recorder
}

// NewPipeline creates an import pipeline; recorder may be nil.
func NewPipeline(db *database.Database, recorder Recorder) *Pipeline {
	return &Pipeline{db: db, recorder: recorder}
}

// Import reads, decodes and commits src in one go.
func (p *Pipeline) Import(ctx context.Context, src io.Reader, profileID uint, opts Options) (Outcome, error) {
	preview, err := p.Preview(ctx, src, profileID, opts.Format)
	if err != nil {
		p.record(profileID, opts.Format, Outcome{}, err)
		return failed(Outcome{}, err), err
	}
	return p.Commit(ctx, preview, profileID, opts)
}

// Preview decodes src and flags each candidate. The store is only read.
func (p *Pipeline) Preview(ctx context.Context, src io.Reader, profileID uint, format formats.Format) (*Preview, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadSource, err)
	}

	decoder, err := formats.DecoderFor(format)
	if err != nil {
		return nil, err
	}
	decoded, err := decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	preview, err := p.PreviewRecords(ctx, decoded.Records, profileID, format)
	if err != nil {
		return nil, err
	}
	preview.Malformed = decoded.Skipped
	return preview, nil
}

// PreviewRecords annotates already decoded records against the profile.
// Callers that round-trip a preview through a client use it to recompute
// the flags instead of trusting submitted ones.
func (p *Pipeline) PreviewRecords(ctx context.Context, records []formats.Record, profileID uint, format formats.Format) (*Preview, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := profiles.NewRepository(p.db.DB).GetByID(profileID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownProfile, profileID)
		}
		return nil, err
	}

	existing, err := links.NewRepository(p.db.DB).ExistingURIs(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing links: %w", err)
	}

	return &Preview{
		Format:     format,
		Candidates: annotate(records, existing),
	}, nil
}

// annotate normalizes records and flags invalid and duplicate entries.
// A link repeated within the batch is a duplicate of its first occurrence.
func annotate(records []formats.Record, existing map[string]struct{}) []Candidate {
	candidates := make([]Candidate, 0, len(records))
	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		c := Candidate{Raw: rec.Link, Record: rec, Selected: true}
		c.Link = formats.NormalizeLink(rec.Link)
		c.Valid = formats.ValidateLink(c.Link) == nil
		if c.Valid {
			_, stored := existing[c.Link]
			_, repeated := seen[c.Link]
			c.Duplicate = stored || repeated
			seen[c.Link] = struct{}{}
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// Commit stores the selected, valid candidates of preview in one transaction.
func (p *Pipeline) Commit(ctx context.Context, preview *Preview, profileID uint, opts Options) (Outcome, error) {
	format := opts.Format
	if preview.Format != "" {
		format = preview.Format
	}

	outcome := Outcome{Skipped: preview.Malformed}
	accepted := make([]Candidate, 0, len(preview.Candidates))
	for _, c := range preview.Candidates {
		switch {
		case !c.Valid || !c.Selected:
			outcome.Skipped++
		case c.Duplicate && !opts.AllowDuplicates:
			outcome.Duplicates++
		default:
			accepted = append(accepted, c)
		}
	}

	if err := ctx.Err(); err != nil {
		return failed(outcome, err), err
	}

	if len(accepted) > 0 {
		if err := p.store(ctx, accepted, profileID); err != nil {
			err = fmt.Errorf("%w: %w", ErrCommit, err)
			p.record(profileID, format, outcome, err)
			return failed(outcome, err), err
		}
	}

	outcome.Imported = len(accepted)
	log.Printf("Import (%s): profile %d, %d imported, %d skipped, %d duplicates",
		format, profileID, outcome.Imported, outcome.Skipped, outcome.Duplicates)
	p.record(profileID, format, outcome, nil)
	return outcome, nil
}

func (p *Pipeline) store(ctx context.Context, accepted []Candidate, profileID uint) error {
	return p.db.WithTransaction(func(tx *gorm.DB) error {
		linkRepo := links.NewRepository(tx)
		tagRepo := tags.NewRepository(tx)
		tagCache := make(map[string]entities.Tag)

		for _, c := range accepted {
			if err := ctx.Err(); err != nil {
				return err
			}

			link := linkFromCandidate(c, profileID)
			if err := linkRepo.Create(&link); err != nil {
				return fmt.Errorf("failed to create link %s: %w", c.Link, err)
			}

			tagList, err := tagRepo.GetOrCreateTags(c.Tags, tagCache)
			if err != nil {
				return fmt.Errorf("failed to resolve tags for %s: %w", c.Link, err)
			}
			if err := linkRepo.AttachTags(&link, tagList); err != nil {
				return fmt.Errorf("failed to tag %s: %w", c.Link, err)
			}
		}
		return nil
	})
}

func linkFromCandidate(c Candidate, profileID uint) entities.Link {
	link := entities.Link{
		Link:        c.Link,
		Name:        c.Name,
		Notes:       c.Notes,
		Thumbnail:   c.Thumbnail,
		OpenedCount: c.OpenedCount,
		IsFavourite: c.IsFavourite,
		ProfileID:   profileID,
	}
	if created, err := formats.ParseTime(c.CreatedAt); err == nil {
		link.CreatedAt = created
	} else {
		link.CreatedAt = time.Now().UTC()
	}
	if opened, err := formats.ParseTime(c.LastOpenedAt); err == nil {
		link.LastOpenedAt = &opened
	}
	return link
}

func (p *Pipeline) record(profileID uint, format formats.Format, outcome Outcome, err error) {
	metrics.ImportRuns.WithLabelValues(string(format), metrics.Status(err)).Inc()
	metrics.ImportedLinks.WithLabelValues("imported").Add(float64(outcome.Imported))
	metrics.ImportedLinks.WithLabelValues("skipped").Add(float64(outcome.Skipped))
	metrics.ImportedLinks.WithLabelValues("duplicate").Add(float64(outcome.Duplicates))
	if p.recorder != nil {
		p.recorder.LogImport(profileID, string(format), outcome.Imported, outcome.Skipped, outcome.Duplicates, err)
	}
}

func failed(outcome Outcome, err error) Outcome {
	outcome.Imported = 0
	outcome.Error = err.Error()
	return outcome
}
