// Package cleanup は期限切れCAPTCHAチャレンジの自動削除ジョブを提供する。
// 期限切れのチャレンジは参照時に無視されるため、削除は容量の回収だけを目的とする。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/campusmarket/internal/metrics"
)

// ChallengePurger は期限切れチャレンジの削除を抽象化するインターフェース。
// repository.ChallengeRepositoryの部分集合として定義する。
type ChallengePurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CleanupJob は期限切れチャレンジの定期削除ジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type CleanupJob struct {
	purger  ChallengePurger
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。mcがnilの場合はメトリクスを記録しない。
func NewCleanupJob(purger ChallengePurger, logger *slog.Logger, mc metrics.MetricsCollector) *CleanupJob {
	if mc == nil {
		mc = metrics.NopCollector{}
	}
	return &CleanupJob{
		purger:  purger,
		logger:  logger,
		metrics: mc,
		now:     time.Now,
	}
}

// Run は現在時刻で期限切れのチャレンジを削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.purger.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("challenge cleanup failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to purge expired challenges: %w", err)
	}

	j.metrics.RecordChallengesPurged(deleted)

	duration := time.Since(start)
	j.logger.Info("challenge cleanup completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後interval毎にRunを実行する。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗では停止しない。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
