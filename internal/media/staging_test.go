package media

import (
	"bytes"
	"testing"

	"github.com/angelmondragon/catalog-admin/pkg/enums"
	pkgerrors "github.com/angelmondragon/catalog-admin/pkg/errors"
)

var testLimits = Limits{MaxFiles: 5, MaxImageBytes: 5 * 1024 * 1024, MaxVideoBytes: 20 * 1024 * 1024}

func TestStageFirstItemBecomesMain(t *testing.T) {
	s := NewStaging(testLimits)
	first, err := s.Stage(File{Name: "a.png", MimeType: "image/png", Data: pngHeader})
	if err != nil {
		t.Fatalf("stage first: %v", err)
	}
	second, err := s.Stage(File{Name: "b.mp4", MimeType: "video/mp4", Data: []byte("video")})
	if err != nil {
		t.Fatalf("stage second: %v", err)
	}
	if !first.IsMain || second.IsMain {
		t.Fatalf("expected only the first item to be main")
	}
	if second.FileType != enums.MediaFileTypeVideo {
		t.Fatalf("expected video file type, got %s", second.FileType)
	}
}

func TestStageSniffsMissingMime(t *testing.T) {
	s := NewStaging(testLimits)
	item, err := s.Stage(File{Name: "photo", Data: pngHeader})
	if err != nil {
		t.Fatalf("stage: %v", err)
	}
	if item.File.MimeType != "image/png" || item.FileType != enums.MediaFileTypeImage {
		t.Fatalf("unexpected detection %s / %s", item.File.MimeType, item.FileType)
	}
}

func TestStageRejectionsLeaveSetUnchanged(t *testing.T) {
	cases := map[string]File{
		"wrong type":      {Name: "doc.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")},
		"image too large": {Name: "big.png", MimeType: "image/png", Data: bytes.Repeat([]byte("x"), 5*1024*1024+1)},
		"video too large": {Name: "big.mp4", MimeType: "video/mp4", Data: bytes.Repeat([]byte("x"), 20*1024*1024+1)},
		"empty":           {Name: "empty.png", MimeType: "image/png"},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			s := NewStaging(testLimits)
			if _, err := s.Stage(File{Name: "ok.png", MimeType: "image/png", Data: pngHeader}); err != nil {
				t.Fatalf("stage ok: %v", err)
			}
			_, err := s.Stage(file)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if s.Len() != 1 {
				t.Fatalf("expected staged set unchanged, got %d items", s.Len())
			}
		})
	}
}

func TestStageEnforcesMaxFiles(t *testing.T) {
	s := NewStaging(Limits{MaxFiles: 2, MaxImageBytes: 1024, MaxVideoBytes: 1024})
	for i := 0; i < 2; i++ {
		if _, err := s.Stage(File{Name: "a.png", MimeType: "image/png", Data: pngHeader}); err != nil {
			t.Fatalf("stage %d: %v", i, err)
		}
	}
	if _, err := s.Stage(File{Name: "c.png", MimeType: "image/png", Data: pngHeader}); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected max files validation error, got %v", err)
	}
}

func TestSetMainIsExclusive(t *testing.T) {
	s := NewStaging(testLimits)
	a, _ := s.Stage(File{Name: "a.png", MimeType: "image/png", Data: pngHeader})
	b, _ := s.Stage(File{Name: "b.png", MimeType: "image/png", Data: pngHeader})

	if err := s.SetMain(b.ID); err != nil {
		t.Fatalf("set main: %v", err)
	}
	items := s.Items()
	if items[0].IsMain || !items[1].IsMain {
		t.Fatalf("expected %s to be the only main item", b.ID)
	}
	if err := s.SetMain("missing"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_ = a
}

func TestRemoveMainPromotesFirst(t *testing.T) {
	s := NewStaging(testLimits)
	a, _ := s.Stage(File{Name: "a.png", MimeType: "image/png", Data: pngHeader})
	b, _ := s.Stage(File{Name: "b.png", MimeType: "image/png", Data: pngHeader})
	c, _ := s.Stage(File{Name: "c.png", MimeType: "image/png", Data: pngHeader})

	if err := s.SetMain(c.ID); err != nil {
		t.Fatalf("set main: %v", err)
	}
	if err := s.Remove(c.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	items := s.Items()
	if len(items) != 2 || items[0].ID != a.ID || !items[0].IsMain || items[1].IsMain {
		t.Fatalf("expected %s promoted to main, got %+v", a.ID, items)
	}

	if err := s.Remove(b.ID); err != nil {
		t.Fatalf("remove non-main: %v", err)
	}
	if items := s.Items(); !items[0].IsMain {
		t.Fatalf("main flag should survive removing a non-main item")
	}
}

func TestStageUploadedFirstStoredMainWins(t *testing.T) {
	s := NewStaging(testLimits)
	first := s.StageUploaded("https://cdn/a.png", true, enums.MediaFileTypeImage, "a.png")
	s.StageUploaded("https://cdn/b.png", true, enums.MediaFileTypeImage, "b.png")
	s.StageUploaded("https://cdn/c.png", false, enums.MediaFileTypeImage, "c.png")

	items := s.Items()
	if !items[0].IsMain || items[0].ID != first.ID {
		t.Fatalf("expected the first flagged item to stay main, got %+v", items)
	}
	if items[1].IsMain || items[2].IsMain {
		t.Fatalf("expected a single main item, got %+v", items)
	}

	s.Reset()
	s.StageUploaded("https://cdn/d.png", false, enums.MediaFileTypeImage, "d.png")
	later := s.StageUploaded("https://cdn/e.png", true, enums.MediaFileTypeImage, "e.png")
	if items := s.Items(); items[0].IsMain || !items[1].IsMain || items[1].ID != later.ID {
		t.Fatalf("reset should forget the earlier stored main, got %+v", items)
	}
}

func TestStageUploadedAndReset(t *testing.T) {
	s := NewStaging(testLimits)
	s.StageUploaded("https://cdn/a.png", false, enums.MediaFileTypeImage, "a.png")
	main := s.StageUploaded("https://cdn/b.mp4", true, enums.MediaFileTypeVideo, "b.mp4")

	items := s.Items()
	if !items[0].Uploaded || items[0].PublicURL != "https://cdn/a.png" {
		t.Fatalf("unexpected uploaded item %+v", items[0])
	}
	if items[0].IsMain || !items[1].IsMain || items[1].ID != main.ID {
		t.Fatalf("expected the flagged item to be main")
	}

	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("expected empty set after reset")
	}
}
