package ingest

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/phrazzld/studyloop/internal/domain"
	"github.com/phrazzld/studyloop/internal/generation"
	"github.com/phrazzld/studyloop/internal/recovery"
	"golang.org/x/sync/errgroup"
)

// PageImage is a rendered page screenshot.
type PageImage struct {
	Data     []byte
	MIMEType string
}

// DataURL encodes the image as a data: URL.
func (img PageImage) DataURL() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Uploader stores a page image and returns a locator the model can fetch.
type Uploader interface {
	Upload(ctx context.Context, img PageImage) (string, error)
}

// Page is one unit of batch ingestion. Number is 1-based; zero means the
// whole resource is processed in a single call.
type Page struct {
	Number int
	Text   string
	Image  *PageImage
}

// PageFailure records why a page produced nothing.
type PageFailure struct {
	Page int
	Err  error
}

// BatchResult accumulates the output of every page that succeeded, in page
// order.
type BatchResult struct {
	Blocks         []domain.ContentBlock
	Units          []domain.LearningUnit
	PagesTotal     int
	PagesSucceeded int
	Failures       []PageFailure
}

// Err summarizes page failures, or returns nil when every page succeeded.
func (r *BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = fmt.Errorf("page %d: %w", f.Page, f.Err)
	}
	return errors.Join(errs...)
}

// Pipeline drives the generator through block extraction and unit
// synthesis for each page of a resource.
type Pipeline struct {
	generator   generation.Generator
	uploader    Uploader
	logger      *slog.Logger
	concurrency int
	calls       atomic.Int64
}

// NewPipeline creates a Pipeline. uploader may be nil, in which case page
// images are sent inline as data URLs. concurrency bounds how many pages are
// in flight at once.
func NewPipeline(generator generation.Generator, uploader Uploader, logger *slog.Logger, concurrency int) (*Pipeline, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		generator:   generator,
		uploader:    uploader,
		logger:      logger.With("component", "ingest_pipeline"),
		concurrency: concurrency,
	}, nil
}

// Calls returns how many generator calls the pipeline has made.
func (p *Pipeline) Calls() int64 {
	return p.calls.Load()
}

type pageOutput struct {
	blocks []domain.ContentBlock
	units  []domain.LearningUnit
	err    error
}

// Run ingests every page of resource. A failing page is logged and skipped;
// Run only returns an error when no page succeeded, the context was
// cancelled, or resource is nil. With no pages the resource is processed in
// one call, and a failure of that call is returned directly.
func (p *Pipeline) Run(ctx context.Context, resource *domain.Resource, pages []Page) (*BatchResult, error) {
	if resource == nil {
		return nil, ErrNilResource
	}

	log := p.logger.With("resource_id", resource.ID)

	if len(pages) == 0 {
		out := p.runPage(ctx, resource, Page{})
		if out.err != nil {
			return nil, out.err
		}
		return &BatchResult{
			Blocks:         out.blocks,
			Units:          out.units,
			PagesTotal:     1,
			PagesSucceeded: 1,
		}, nil
	}

	outputs := make([]pageOutput, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, page := range pages {
		if page.Number == 0 {
			page.Number = i + 1
		}
		g.Go(func() error {
			outputs[i] = p.runPage(gctx, resource, page)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &BatchResult{PagesTotal: len(pages)}
	seenBlocks := make(map[string]bool)
	seenUnits := make(map[string]bool)

	for i, out := range outputs {
		number := pages[i].Number
		if number == 0 {
			number = i + 1
		}
		if out.err != nil {
			log.WarnContext(ctx, "page ingestion failed, skipping",
				"page", number,
				"error", out.err)
			result.Failures = append(result.Failures, PageFailure{Page: number, Err: out.err})
			continue
		}

		renamed := uniqueBlockIDs(out.blocks, seenBlocks)
		for j := range out.units {
			out.units[j] = retargetUnit(out.units[j], out.blocks, renamed)
			out.units[j].ID = uniqueID(out.units[j].ID, seenUnits)
		}

		result.Blocks = append(result.Blocks, out.blocks...)
		result.Units = append(result.Units, out.units...)
		result.PagesSucceeded++
	}

	log.InfoContext(ctx, "batch ingestion finished",
		"pages_total", result.PagesTotal,
		"pages_succeeded", result.PagesSucceeded,
		"blocks", len(result.Blocks),
		"units", len(result.Units))

	if result.PagesSucceeded == 0 {
		return result, fmt.Errorf("%w: %v", ErrNoPagesIngested, result.Err())
	}
	return result, nil
}

// retargetUnit rewrites source block references after block ids were
// renamed for cross-page uniqueness.
func retargetUnit(u domain.LearningUnit, blocks []domain.ContentBlock, renamed map[int]string) domain.LearningUnit {
	if len(renamed) == 0 {
		return u
	}
	ids := make([]string, len(u.SourceBlockIDs))
	for k, id := range u.SourceBlockIDs {
		ids[k] = id
		for pos, old := range renamed {
			if old == id {
				ids[k] = blocks[pos].ID
				break
			}
		}
	}
	u.SourceBlockIDs = ids
	return u
}

func (p *Pipeline) runPage(ctx context.Context, resource *domain.Resource, page Page) pageOutput {
	log := p.logger.With("resource_id", resource.ID, "page", page.Number)

	var images []generation.Image
	var locators []string
	if page.Image != nil {
		url, err := p.locate(ctx, *page.Image)
		if err != nil {
			return pageOutput{err: fmt.Errorf("failed to upload page image: %w", err)}
		}
		images = []generation.Image{{URL: url, MIMEType: page.Image.MIMEType}}
		locators = []string{url}
	}

	blocks, err := p.ExtractBlocks(ctx, resource, page, images, locators)
	if err != nil {
		return pageOutput{err: err}
	}

	units, err := p.BuildUnits(ctx, blocks, images)
	if err != nil {
		return pageOutput{err: err}
	}

	if page.Number > 0 {
		for i := range units {
			units[i] = units[i].WithPage(page.Number)
		}
	}

	log.DebugContext(ctx, "page ingested", "blocks", len(blocks), "units", len(units))
	return pageOutput{blocks: blocks, units: units}
}

func (p *Pipeline) locate(ctx context.Context, img PageImage) (string, error) {
	if p.uploader == nil {
		return img.DataURL(), nil
	}
	return p.uploader.Upload(ctx, img)
}

// ExtractBlocks asks the model for the knowledge blocks of one page and
// normalizes what it returns. locators are attached to every block.
func (p *Pipeline) ExtractBlocks(
	ctx context.Context,
	resource *domain.Resource,
	page Page,
	images []generation.Image,
	locators []string,
) ([]domain.ContentBlock, error) {
	prompt, err := BlockPrompt(resource, page.Number, page.Text)
	if err != nil {
		return nil, err
	}

	res, err := p.generateAndRecover(ctx, prompt, images)
	if err != nil {
		return nil, fmt.Errorf("block extraction failed: %w", err)
	}

	blocks := NormalizeAll(res.Values, resource, locators)
	if len(blocks) == 0 {
		return nil, ErrNoBlocks
	}
	return blocks, nil
}

// BuildUnits asks the model for one exercise intent per block and
// synthesizes the learning units.
func (p *Pipeline) BuildUnits(ctx context.Context, blocks []domain.ContentBlock, images []generation.Image) ([]domain.LearningUnit, error) {
	prompt, err := UnitPrompt(blocks)
	if err != nil {
		return nil, err
	}

	res, err := p.generateAndRecover(ctx, prompt, images)
	if err != nil {
		return nil, fmt.Errorf("unit synthesis failed: %w", err)
	}

	return Synthesize(blocks, res.Values), nil
}

// generateAndRecover calls the model and extracts JSON from the response.
// When a call with images fails it is retried once as text only.
func (p *Pipeline) generateAndRecover(ctx context.Context, prompt string, images []generation.Image) (recovery.Result, error) {
	req := generation.Request{System: SystemInstruction, Prompt: prompt, Images: images}

	p.calls.Add(1)
	text, err := p.generator.Generate(ctx, req)
	if err != nil && len(images) > 0 && ctx.Err() == nil {
		p.logger.WarnContext(ctx, "vision call failed, retrying as text only", "error", err)
		req.Images = nil
		p.calls.Add(1)
		text, err = p.generator.Generate(ctx, req)
	}
	if err != nil {
		return recovery.Result{}, err
	}

	res, err := recovery.Extract(text)
	if err != nil {
		p.logger.ErrorContext(ctx, "no JSON recovered from model output",
			"error", err,
			"response_length", len(text))
		return res, err
	}
	for _, d := range res.Discarded {
		p.logger.WarnContext(ctx, "discarded unparseable candidate object",
			"offset", d.Offset,
			"snippet", d.Snippet,
			"error", d.Err)
	}
	if res.Partial() {
		p.logger.InfoContext(ctx, "partial recovery",
			"recovered", len(res.Values),
			"discarded", len(res.Discarded))
	}
	return res, nil
}
