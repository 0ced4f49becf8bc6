package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgard/memebot/internal/database"
	"github.com/edgard/memebot/internal/memebot"
)

// newMemeAwardsTask posts the most liked message of the configured window.
// A message that already won the previous award for the window is not
// announced again.
func newMemeAwardsTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", TaskMemeAwards)

	return func(ctx context.Context) error {
		window := deps.Config.Scheduler.AwardsWindow

		best, err := deps.Awards.BestPost(ctx, window)
		if errors.Is(err, memebot.ErrNoPostsFound) {
			log.InfoContext(ctx, "No posts to award", "window", window)
			return nil
		}
		if err != nil {
			return fmt.Errorf("finding best post of the %s: %w", window, err)
		}

		last, err := deps.Store.LastAward(ctx, window)
		if err != nil {
			return fmt.Errorf("loading last award: %w", err)
		}
		if last != nil && last.MessageID == best.ID {
			log.InfoContext(ctx, "Best post already awarded, skipping", "window", window, "message_id", best.ID)
			return nil
		}

		resp := deps.Awards.Messages().AwardsResponse(window, best)
		if err := deps.Awards.Announce(ctx, resp); err != nil {
			return fmt.Errorf("announcing award: %w", err)
		}

		award := &database.Award{
			Window:     window,
			MessageID:  best.ID,
			AuthorName: best.AuthorName,
			Text:       best.Text,
			Likes:      best.Likes(),
			AwardedAt:  deps.now(),
		}
		if err := deps.Store.SaveAward(ctx, award); err != nil {
			return fmt.Errorf("saving award: %w", err)
		}

		log.InfoContext(ctx, "Meme award posted", "window", window, "message_id", best.ID,
			"author", best.AuthorName, "likes", award.Likes)
		return nil
	}
}
