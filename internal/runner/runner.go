// Package runner drives one cue-card generation run: fetch, generate, merge,
// package. Items are processed strictly one after another; a bad identifier
// costs only its own card.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnemet/CueForge/internal/archive"
	"github.com/gnemet/CueForge/internal/catalog"
	"github.com/gnemet/CueForge/internal/config"
	"github.com/gnemet/CueForge/internal/copywriter"
	"github.com/gnemet/CueForge/internal/i18n"
	"github.com/gnemet/CueForge/internal/pptx"
)

var (
	ErrNoTasks          = errors.New("no identifiers supplied")
	ErrNoTemplate       = errors.New("no template available")
	ErrNothingGenerated = errors.New("no items were generated")
)

const (
	// ModeDeck produces one multi-slide deck, the first item on the
	// template slide itself and every further item on a clone.
	ModeDeck = "deck"
	// ModeFiles produces one single-slide file per item, zipped.
	ModeFiles = "files"
)

// Fetcher is what the runner needs from the catalog side.
type Fetcher interface {
	Fetch(ctx context.Context, sku string) (*catalog.Product, error)
	FetchImage(ctx context.Context, url string) []byte
}

// Request carries everything one run needs. Credentials and template arrive
// fresh per run; nothing is kept between runs.
type Request struct {
	SKUs         string
	Prices       string
	DefaultPrice string
	Mode         string
	Lang         string
	Template     []byte
	AI           config.ProviderSettings
}

// ItemResult is the per-item outcome. The runner reports the full list and
// leaves presentation of partial failure to its callers.
type ItemResult struct {
	SKU    string `json:"sku"`
	Title  string `json:"title,omitempty"`
	Price  string `json:"price,omitempty"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Report is the result of a run.
type Report struct {
	RunID       string       `json:"run_id"`
	Items       []ItemResult `json:"items"`
	Generated   int          `json:"generated"`
	Filename    string       `json:"filename,omitempty"`
	ContentType string       `json:"-"`
	Output      []byte       `json:"-"`
}

type Runner struct {
	cfg *config.Config
	fet Fetcher
	log *zap.Logger

	// LogChan streams human-readable progress lines to an interactive
	// surface; sends are non-blocking and drop when the buffer is full.
	LogChan chan string

	newGenerator func(config.ProviderSettings, time.Duration, *zap.Logger) (copywriter.Generator, error)
	sleep        func(time.Duration)
}

func New(cfg *config.Config, fet Fetcher, log *zap.Logger) *Runner {
	return &Runner{
		cfg:          cfg,
		fet:          fet,
		log:          log,
		newGenerator: copywriter.New,
		sleep:        time.Sleep,
	}
}

func (r *Runner) progress(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	r.log.Info(msg)
	if r.LogChan != nil {
		select {
		case r.LogChan <- msg:
		default:
			// fast non-blocking drop if buffer full
		}
	}
}

// Run executes one batch. Input validation failures surface before any
// processing; per-item failures are recorded and skipped. The returned
// Report is non-nil even on ErrNothingGenerated so callers can show what
// went wrong per item.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	tasks := ParseTasks(req.SKUs, req.Prices, req.DefaultPrice)
	if len(tasks) == 0 {
		return nil, ErrNoTasks
	}
	if len(req.Template) == 0 {
		return nil, ErrNoTemplate
	}
	tpl, err := pptx.Load(req.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoTemplate, err)
	}

	gen, err := r.newGenerator(req.AI, time.Duration(r.cfg.AI.TimeoutSeconds)*time.Second, r.log)
	if err != nil {
		return nil, err
	}

	lang := req.Lang
	if lang == "" {
		lang = r.cfg.Application.Language
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeDeck
	}

	report := &Report{RunID: uuid.NewString()}

	var deck *pptx.Deck
	var bundle *archive.Builder
	if mode == ModeDeck {
		deck = pptx.NewDeck(tpl)
	} else {
		bundle = archive.NewBuilder()
	}

	for i, task := range tasks {
		if i > 0 {
			r.pause()
		}
		r.progress("processing %s...", task.SKU)

		product, err := r.fet.Fetch(ctx, task.SKU)
		if err != nil {
			reason := i18n.T(lang, "msg.fetch_failed")
			if errors.Is(err, catalog.ErrBlocked) {
				reason = i18n.T(lang, "msg.blocked")
			}
			r.log.Warn("item skipped", zap.String("sku", task.SKU), zap.Error(err))
			report.Items = append(report.Items, ItemResult{SKU: task.SKU, Reason: reason})
			continue
		}
		product.Price = task.Price
		product.Image = r.fet.FetchImage(ctx, product.ImageURL)

		points := copywriter.Points{}
		if gen != nil {
			points = gen.Generate(ctx, product.Title)
		}

		if mode == ModeDeck {
			slide := 0
			if report.Generated > 0 {
				if slide, err = deck.CloneSlide(); err != nil {
					r.log.Warn("clone failed", zap.String("sku", task.SKU), zap.Error(err))
					report.Items = append(report.Items, ItemResult{SKU: task.SKU, Reason: err.Error()})
					continue
				}
			}
			r.fill(deck, slide, product, points, lang)
		} else {
			single := pptx.NewDeck(tpl)
			r.fill(single, 0, product, points, lang)
			data, err := single.Save()
			if err != nil {
				report.Items = append(report.Items, ItemResult{SKU: task.SKU, Reason: err.Error()})
				continue
			}
			if err := bundle.Add(task.SKU+".pptx", data); err != nil {
				report.Items = append(report.Items, ItemResult{SKU: task.SKU, Reason: err.Error()})
				continue
			}
		}

		report.Generated++
		report.Items = append(report.Items, ItemResult{
			SKU: task.SKU, Title: product.Title, Price: product.Price, OK: true,
		})
	}

	if report.Generated == 0 {
		return report, ErrNothingGenerated
	}

	stamp := time.Now().Format("20060102_150405")
	if mode == ModeDeck {
		out, err := deck.Save()
		if err != nil {
			return report, fmt.Errorf("save deck: %w", err)
		}
		report.Output = out
		report.Filename = "cue_cards_" + stamp + ".pptx"
		report.ContentType = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	} else {
		out, err := bundle.Close()
		if err != nil {
			return report, err
		}
		report.Output = out
		report.Filename = "cue_cards_" + stamp + ".zip"
		report.ContentType = "application/zip"
	}

	r.progress("done: %d of %d generated", report.Generated, len(tasks))
	return report, nil
}

// pause sleeps a randomized interval between items so the batch does not
// look like automated traffic to the source site.
func (r *Runner) pause() {
	min, max := r.cfg.Catalog.DelayRange()
	if max <= min {
		r.sleep(min)
		return
	}
	d := min + time.Duration(rand.Int63n(int64(max-min)))
	r.progress("waiting %.1fs before next item...", d.Seconds())
	r.sleep(d)
}

// fill binds one product record onto one slide. Absent shape names are
// silently skipped; that is the template author's call, not an error.
func (r *Runner) fill(deck *pptx.Deck, slide int, p *catalog.Product, points copywriter.Points, lang string) {
	deck.SetText(slide, "product_name", p.Title)
	deck.SetText(slide, "product_sku", p.SKU)
	deck.SetText(slide, "price_live", p.Price)

	for _, key := range copywriter.Keys {
		value, ok := points[key]
		if !ok || value == "" {
			deck.SetText(slide, key, i18n.T(lang, "msg.ai_timeout"))
			continue
		}
		deck.SetText(slide, key, copywriter.Sanitize(value, lang))
	}

	if len(p.Image) > 0 {
		deck.ReplaceImage(slide, "product_image", p.Image)
	} else if r.cfg.Merge.MissingImage == "remove" {
		deck.RemoveShape(slide, "product_image")
	}
}
