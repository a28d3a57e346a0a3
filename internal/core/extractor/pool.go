package extractor

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MuhamadAgungGumelar/ledgerx-fatura/internal/core/ocr"
)

type outcome struct {
	name string
	text string
	err  error
}

// dispatch runs one OCR task per image on at most WorkerCount goroutines and
// streams the outcomes in completion order. The channel is closed once every
// submitted task has finished.
func (e *Extractor) dispatch(ctx context.Context, provider ocr.Provider, images []Image) <-chan outcome {
	out := make(chan outcome, len(images))

	var g errgroup.Group
	g.SetLimit(e.cfg.WorkerCount)

	go func() {
		defer close(out)
		for _, img := range images {
			if ctx.Err() != nil {
				break
			}
			// Go blocks while all workers are busy.
			g.Go(func() error {
				out <- e.recognize(ctx, provider, img)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return out
}

// recognize never fails the batch: errors are logged and reported as empty text.
func (e *Extractor) recognize(ctx context.Context, provider ocr.Provider, img Image) outcome {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		log.Warn().Err(err).Str("file", img.Name).Msg("⚠️ Failed to read image")
		return outcome{name: img.Name, err: err}
	}

	if e.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.TaskTimeout)
		defer cancel()
	}

	res, err := provider.ExtractText(ctx, data, e.cfg.Recognition)
	if err != nil {
		log.Warn().Err(err).Str("file", img.Name).Str("provider", provider.GetProviderName()).Msg("⚠️ OCR failed")
		return outcome{name: img.Name, err: err}
	}

	log.Debug().Str("file", img.Name).Int("chars", len(res.Text)).Msg("OCR done")
	return outcome{name: img.Name, text: res.Text}
}
