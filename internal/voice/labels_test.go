package voice

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

func TestResolveCacheMissThenHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	labelID := uuid.New()
	mock.ExpectQuery("SELECT audio_url FROM voice_fragments").
		WithArgs(labelID, "en").
		WillReturnRows(sqlmock.NewRows([]string{"audio_url"}).AddRow("labels/welcome-en.wav"))

	r := NewLabelResolver(db, cache, time.Minute, "https://cdn.example.org/audio", logging.Default())

	url, err := r.Resolve(context.Background(), labelID, "en")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if url != "https://cdn.example.org/audio/labels/welcome-en.wav" {
		t.Fatalf("unexpected url: %s", url)
	}

	// Second resolve must come from the cache: no further SQL expectation.
	url, err = r.Resolve(context.Background(), labelID, "en")
	if err != nil {
		t.Fatalf("resolve cached: %v", err)
	}
	if url != "https://cdn.example.org/audio/labels/welcome-en.wav" {
		t.Fatalf("unexpected cached url: %s", url)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolveAbsoluteURLPassesThrough(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	labelID := uuid.New()
	mock.ExpectQuery("SELECT audio_url FROM voice_fragments").
		WithArgs(labelID, "sw").
		WillReturnRows(sqlmock.NewRows([]string{"audio_url"}).AddRow("https://elsewhere.example/x.wav"))

	r := NewLabelResolver(db, nil, time.Minute, "https://cdn.example.org/audio", logging.Default())
	url, err := r.Resolve(context.Background(), labelID, "sw")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if url != "https://elsewhere.example/x.wav" {
		t.Fatalf("absolute url should pass through, got %s", url)
	}
}

func TestResolveMissingFragment(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	labelID := uuid.New()
	mock.ExpectQuery("SELECT audio_url FROM voice_fragments").
		WithArgs(labelID, "fr").
		WillReturnRows(sqlmock.NewRows([]string{"audio_url"}))

	r := NewLabelResolver(db, nil, time.Minute, "", logging.Default())
	_, err = r.Resolve(context.Background(), labelID, "fr")
	if err == nil {
		t.Fatal("expected error for missing fragment")
	}
}

func TestResolveRefUnset(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	r := NewLabelResolver(db, nil, time.Minute, "", logging.Default())
	if _, err := r.ResolveRef(context.Background(), uuid.NullUUID{}, "en"); err != ErrFragmentNotFound {
		t.Fatalf("expected ErrFragmentNotFound, got %v", err)
	}
}

func TestResolveSurvivesDeadRedis(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	labelID := uuid.New()
	mock.ExpectQuery("SELECT audio_url FROM voice_fragments").
		WithArgs(labelID, "en").
		WillReturnRows(sqlmock.NewRows([]string{"audio_url"}).AddRow("x.wav"))

	r := NewLabelResolver(db, cache, time.Minute, "", logging.Default())
	url, err := r.Resolve(context.Background(), labelID, "en")
	if err != nil {
		t.Fatalf("resolve with dead redis: %v", err)
	}
	if url != "x.wav" {
		t.Fatalf("unexpected url: %s", url)
	}
}
