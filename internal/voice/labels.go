package voice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/fieldvoice/ivr-platform/pkg/logging"
)

// ErrFragmentNotFound is returned when a label has no audio fragment for the
// requested language.
var ErrFragmentNotFound = errors.New("voice fragment not found")

// LabelResolver maps (voice label, language) to an audio URL. Lookups hit a
// Redis cache first; Redis being absent or down degrades to SQL-only.
type LabelResolver struct {
	db      *sql.DB
	cache   *redis.Client
	ttl     time.Duration
	baseURL string
	logger  *logging.Logger
}

func NewLabelResolver(db *sql.DB, cache *redis.Client, ttl time.Duration, audioBaseURL string, logger *logging.Logger) *LabelResolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &LabelResolver{
		db:      db,
		cache:   cache,
		ttl:     ttl,
		baseURL: strings.TrimRight(audioBaseURL, "/"),
		logger:  logger,
	}
}

func cacheKey(labelID uuid.UUID, language string) string {
	return "voicelabel:" + labelID.String() + ":" + language
}

// Resolve returns the audio URL for a label in the given language.
func (r *LabelResolver) Resolve(ctx context.Context, labelID uuid.UUID, language string) (string, error) {
	key := cacheKey(labelID, language)
	if r.cache != nil {
		cached, err := r.cache.Get(ctx, key).Result()
		if err == nil {
			return r.absolute(cached), nil
		}
		if err != redis.Nil {
			r.logger.Warn("label cache read failed", "error", err, "key", key)
		}
	}

	var audioURL string
	err := r.db.QueryRowContext(ctx, `
		SELECT audio_url FROM voice_fragments
		WHERE voice_label_id = $1 AND language = $2`, labelID, language).Scan(&audioURL)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("label %s language %s: %w", labelID, language, ErrFragmentNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve label: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, audioURL, r.ttl).Err(); err != nil {
			r.logger.Warn("label cache write failed", "error", err, "key", key)
		}
	}
	return r.absolute(audioURL), nil
}

// ResolveRef resolves a nullable label reference. An unset reference fails
// with ErrFragmentNotFound; validators catch this at authoring time, so at
// runtime it means the graph changed under the call.
func (r *LabelResolver) ResolveRef(ctx context.Context, ref uuid.NullUUID, language string) (string, error) {
	if !ref.Valid {
		return "", ErrFragmentNotFound
	}
	return r.Resolve(ctx, ref.UUID, language)
}

func (r *LabelResolver) absolute(audioURL string) string {
	if r.baseURL == "" || strings.Contains(audioURL, "://") {
		return audioURL
	}
	return r.baseURL + "/" + strings.TrimLeft(audioURL, "/")
}
