package formats

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// EnvelopeVersion is the newest backup layout this build understands.
	EnvelopeVersion = 1
	// AppVersionCode identifies the producing build inside envelopes.
	AppVersionCode = 1
)

var ErrUnsupportedEnvelope = errors.New("unsupported backup envelope version")

// Envelope is the self-contained backup document. Links reference their
// profile and tags by name so it can be restored into any store.
type Envelope struct {
	Version        int               `json:"version"`
	AppVersionCode int               `json:"appVersionCode"`
	BackupDate     string            `json:"backupDate"`
	Profiles       []EnvelopeProfile `json:"profiles"`
	Links          []EnvelopeLink    `json:"links"`
}

type EnvelopeProfile struct {
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
}

type EnvelopeLink struct {
	Link         string   `json:"link"`
	Name         string   `json:"name"`
	CreatedAt    string   `json:"createdAt"`
	OpenedCount  int      `json:"openedCount"`
	IsFavourite  bool     `json:"isFavourite"`
	Notes        string   `json:"notes"`
	Thumbnail    string   `json:"thumbnail"`
	ProfileName  string   `json:"profileName"`
	LastOpenedAt string   `json:"lastOpenedAt,omitempty"`
	Tags         []string `json:"tags"`
}

// NewEnvelope builds an envelope stamped with backupDate.
func NewEnvelope(profiles []EnvelopeProfile, records []Record, backupDate time.Time) *Envelope {
	env := &Envelope{
		Version:        EnvelopeVersion,
		AppVersionCode: AppVersionCode,
		BackupDate:     FormatTime(backupDate),
		Profiles:       profiles,
		Links:          make([]EnvelopeLink, 0, len(records)),
	}
	if env.Profiles == nil {
		env.Profiles = []EnvelopeProfile{}
	}
	for _, r := range records {
		tags := r.Tags
		if tags == nil {
			tags = []string{}
		}
		env.Links = append(env.Links, EnvelopeLink{
			Link:         r.Link,
			Name:         r.Name,
			CreatedAt:    r.CreatedAt,
			OpenedCount:  r.OpenedCount,
			IsFavourite:  r.IsFavourite,
			Notes:        r.Notes,
			Thumbnail:    r.Thumbnail,
			ProfileName:  r.ProfileName,
			LastOpenedAt: r.LastOpenedAt,
			Tags:         tags,
		})
	}
	return env
}

// Records returns the envelope links as records.
func (e *Envelope) Records() []Record {
	records := make([]Record, 0, len(e.Links))
	for _, l := range e.Links {
		records = append(records, Record{
			Link:         l.Link,
			Name:         l.Name,
			CreatedAt:    l.CreatedAt,
			OpenedCount:  l.OpenedCount,
			IsFavourite:  l.IsFavourite,
			Notes:        l.Notes,
			Thumbnail:    l.Thumbnail,
			ProfileName:  l.ProfileName,
			LastOpenedAt: l.LastOpenedAt,
			Tags:         l.Tags,
		})
	}
	return records
}

func EncodeEnvelope(env *Envelope) ([]byte, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup envelope: %w", err)
	}
	return data, nil
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode backup envelope: %w", err)
	}
	if env.Version < 1 || env.Version > EnvelopeVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedEnvelope, env.Version)
	}
	return &env, nil
}

// JSONCodec adapts the backup envelope to the generic codec interfaces.
// Encoding derives the profile list from the records' profile names.
type JSONCodec struct{}

func (JSONCodec) Encode(records []Record) ([]byte, error) {
	seen := make(map[string]struct{})
	var profiles []EnvelopeProfile
	for _, r := range records {
		if r.ProfileName == "" {
			continue
		}
		if _, ok := seen[r.ProfileName]; ok {
			continue
		}
		seen[r.ProfileName] = struct{}{}
		profiles = append(profiles, EnvelopeProfile{Name: r.ProfileName, CreatedAt: r.CreatedAt})
	}
	return EncodeEnvelope(NewEnvelope(profiles, records, time.Now()))
}

func (JSONCodec) Decode(data []byte) (*Decoded, error) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	return &Decoded{Records: env.Records()}, nil
}
