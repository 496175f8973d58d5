package service

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/smartnote/internal/filestore"
	"github.com/xxxsen/smartnote/internal/model"
	appErr "github.com/xxxsen/smartnote/internal/pkg/errors"
)

const exportPageSize = 100

type NotesExportItem struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Summary string   `json:"summary,omitempty"`
	Tags    []string `json:"tags"`
	Ctime   int64    `json:"ctime"`
	Mtime   int64    `json:"mtime"`
}

type ExportResult struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	Size  int64  `json:"size"`
}

type ExportService struct {
	notes NoteStore
	store filestore.Store
}

func NewExportService(notes NoteStore, store filestore.Store) *ExportService {
	return &ExportService{notes: notes, store: store}
}

// Export writes every live note of userID into a zip archive, one JSON file
// per note, and stores it under a key only that user can download.
func (s *ExportService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	tmp, err := os.CreateTemp("", "smartnote-export-*.zip")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	count, err := s.writeArchive(ctx, userID, tmp)
	if err != nil {
		return nil, err
	}
	size, err := tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}
	key := exportKeyPrefix(userID) + uuid.NewString() + ".zip"
	if err := s.store.Save(ctx, key, tmp, size); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}
	logutil.GetLogger(ctx).Info("notes exported",
		zap.String("user_id", userID), zap.String("key", key), zap.Int("count", count), zap.Int64("size", size))
	return &ExportResult{Key: key, Count: count, Size: size}, nil
}

func (s *ExportService) writeArchive(ctx context.Context, userID string, w io.Writer) (int, error) {
	writer := zip.NewWriter(w)
	count := 0
	afterID := ""
	for {
		notes, err := s.notes.ListByUserAfter(ctx, userID, afterID, exportPageSize)
		if err != nil {
			_ = writer.Close()
			return 0, err
		}
		for _, note := range notes {
			if err := writeNoteEntry(writer, note); err != nil {
				_ = writer.Close()
				return 0, err
			}
			count++
		}
		if len(notes) < exportPageSize {
			break
		}
		afterID = notes[len(notes)-1].ID
	}
	manifest, err := json.Marshal(map[string]interface{}{
		"owner":       userID,
		"count":       count,
		"exported_at": time.Now().Unix(),
	})
	if err != nil {
		_ = writer.Close()
		return 0, err
	}
	entry, err := writer.Create("manifest.json")
	if err != nil {
		_ = writer.Close()
		return 0, err
	}
	if _, err := entry.Write(manifest); err != nil {
		_ = writer.Close()
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}
	return count, nil
}

func writeNoteEntry(writer *zip.Writer, note model.Note) error {
	payload := NotesExportItem{
		ID:      note.ID,
		Title:   note.Title,
		Content: note.Content,
		Summary: strings.TrimSpace(note.Summary),
		Tags:    note.Tags,
		Ctime:   note.Ctime,
		Mtime:   note.Mtime,
	}
	if payload.Tags == nil {
		payload.Tags = []string{}
	}
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	entry, err := writer.Create("notes/" + note.ID + ".json")
	if err != nil {
		return err
	}
	_, err = entry.Write(content)
	return err
}

// Open streams a stored export. Keys of other users read as not found.
func (s *ExportService) Open(ctx context.Context, userID, key string) (io.ReadCloser, error) {
	if !strings.HasPrefix(key, exportKeyPrefix(userID)) {
		return nil, appErr.ErrNotFound
	}
	return s.store.Open(ctx, key)
}

func exportKeyPrefix(userID string) string {
	return "export-" + userID + "-"
}
