package settings

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/keshon/datastore"
)

const historyLimit = 20

// ErrTagExists is returned by PutTag when the name is taken.
var ErrTagExists = errors.New("tag already exists")

// Store keeps per-guild state in a JSON datastore, one record per guild:
// settings, recent command history and tags.
type Store struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc // stops the datastore autosave
	mu     sync.Mutex         // serialises read-modify-write of a guild record
}

// Record is the persisted state of one guild.
type Record struct {
	Values  map[string]string `json:"values"`
	History []HistoryEntry    `json:"cmd_history"`
	Tags    map[string]Tag    `json:"tags"`
}

// HistoryEntry is one command invocation seen in a guild.
type HistoryEntry struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Command   string    `json:"command"`
	Args      string    `json:"args"`
	Outcome   string    `json:"outcome"`
	Datetime  time.Time `json:"datetime"`
}

// Tag is a named snippet of text owned by a user.
type Tag struct {
	Name    string    `json:"name"`
	Content string    `json:"content"`
	OwnerID string    `json:"owner_id"`
	Created time.Time `json:"created"`
}

// Open loads or creates the datastore file at path. The datastore saves
// itself in the background until ctx is done or the store is closed.
func Open(ctx context.Context, path string, opts ...datastore.Option) (*Store, error) {
	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, path, opts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open settings store: %w", err)
	}
	return &Store{ds: ds, cancel: cancel}, nil
}

// Close stops the autosave and writes the file one last time.
func (s *Store) Close() error {
	s.cancel()
	return s.ds.Close()
}

// Get implements Lookup.
func (s *Store) Get(guildID, key string) (string, bool) {
	if guildID == "" {
		return "", false
	}
	record, err := s.record(guildID)
	if err != nil {
		return "", false
	}
	v, ok := record.Values[key]
	return v, ok
}

// Set stores a setting for a guild.
func (s *Store) Set(guildID, key, value string) error {
	return s.update(guildID, func(r *Record) error {
		r.Values[key] = value
		return nil
	})
}

// Delete removes a setting for a guild.
func (s *Store) Delete(guildID, key string) error {
	return s.update(guildID, func(r *Record) error {
		delete(r.Values, key)
		return nil
	})
}

// All returns a copy of every setting of a guild.
func (s *Store) All(guildID string) (map[string]string, error) {
	record, err := s.record(guildID)
	if err != nil {
		return nil, err
	}
	return record.Values, nil
}

// DisableCategory turns a whole command category off in a guild.
func (s *Store) DisableCategory(guildID, category string) error {
	return s.Set(guildID, DisabledKey(category), "true")
}

func (s *Store) EnableCategory(guildID, category string) error {
	return s.Delete(guildID, DisabledKey(category))
}

// AppendHistory records a command invocation. Only the most recent entries
// are kept.
func (s *Store) AppendHistory(guildID string, entry HistoryEntry) error {
	return s.update(guildID, func(r *Record) error {
		r.History = append(r.History, entry)
		if len(r.History) > historyLimit {
			r.History = r.History[len(r.History)-historyLimit:]
		}
		return nil
	})
}

// History returns the recorded invocations of a guild, oldest first.
func (s *Store) History(guildID string) ([]HistoryEntry, error) {
	record, err := s.record(guildID)
	if err != nil {
		return nil, err
	}
	return record.History, nil
}

// PutTag creates a tag. It fails if the name is taken.
func (s *Store) PutTag(guildID string, tag Tag) error {
	key := strings.ToLower(tag.Name)
	return s.update(guildID, func(r *Record) error {
		if _, ok := r.Tags[key]; ok {
			return fmt.Errorf("%w: %q", ErrTagExists, tag.Name)
		}
		r.Tags[key] = tag
		return nil
	})
}

func (s *Store) GetTag(guildID, name string) (Tag, bool) {
	record, err := s.record(guildID)
	if err != nil {
		return Tag{}, false
	}
	t, ok := record.Tags[strings.ToLower(name)]
	return t, ok
}

// Tags returns the guild's tag names, sorted.
func (s *Store) Tags(guildID string) ([]string, error) {
	record, err := s.record(guildID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(record.Tags))
	for _, t := range record.Tags {
		names = append(names, t.Name)
	}
	slices.Sort(names)
	return names, nil
}

// DeleteTag removes a tag and reports whether it existed.
func (s *Store) DeleteTag(guildID, name string) (bool, error) {
	found := false
	err := s.update(guildID, func(r *Record) error {
		key := strings.ToLower(name)
		_, found = r.Tags[key]
		delete(r.Tags, key)
		return nil
	})
	return found, err
}

func (s *Store) update(guildID string, fn func(*Record) error) error {
	if guildID == "" {
		return fmt.Errorf("update settings: empty guild id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.record(guildID)
	if err != nil {
		return err
	}
	if err := fn(record); err != nil {
		return err
	}
	if err := s.ds.Set(guildID, record); err != nil {
		return fmt.Errorf("error saving guild %s record: %w", guildID, err)
	}
	return nil
}

// record decodes a fresh copy of the guild record.
func (s *Store) record(guildID string) (*Record, error) {
	record := newRecord()
	if _, err := s.ds.Get(guildID, record); err != nil {
		return nil, fmt.Errorf("error loading guild %s record: %w", guildID, err)
	}
	if record.Values == nil {
		record.Values = map[string]string{}
	}
	if record.Tags == nil {
		record.Tags = map[string]Tag{}
	}
	return record, nil
}

func newRecord() *Record {
	return &Record{Values: map[string]string{}, Tags: map[string]Tag{}}
}
