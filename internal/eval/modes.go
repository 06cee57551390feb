package eval

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	mathrand "math/rand/v2"
	"sync"

	"github.com/giant-wsi/giant/internal/action"
	"github.com/giant-wsi/giant/internal/agent"
	"github.com/giant-wsi/giant/internal/evalserver"
	"github.com/giant-wsi/giant/internal/label"
	"github.com/giant-wsi/giant/internal/llm"
	"github.com/giant-wsi/giant/internal/mempool"
	"github.com/giant-wsi/giant/internal/segment"
	"github.com/giant-wsi/giant/internal/vote"
	"github.com/giant-wsi/giant/internal/wsi"
	"golang.org/x/sync/errgroup"
)

const maxThumbnailRetries = 3

// StrayCropError reports a forced-answer executor (thumbnail/patch/
// patch_vote) whose model kept requesting crops past the retry bound.
type StrayCropError struct{ Attempts int }

func (e *StrayCropError) Error() string {
	return fmt.Sprintf("eval: model requested a crop %d times despite forced-answer mode", e.Attempts)
}

// BudgetExceededError reports an executor ending a run because cumulative
// cost reached the configured per-item ceiling.
type BudgetExceededError struct {
	SpentUSD  float64
	BudgetUSD float64
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("eval: cumulative cost $%.4f reached budget $%.4f", e.SpentUSD, e.BudgetUSD)
}

// executeGiant runs the full agent loop (C9) for one item.
func executeGiant(ctx context.Context, w *Worker, item BenchmarkItem) (RunRecord, error) {
	a := &agent.Agent{
		Decoder:          w.Decoder,
		CropEng:          w.CropEngine,
		Provider:         w.Provider,
		MaxSteps:         w.MaxSteps,
		MaxHistoryImages: w.MaxHistoryImages,
		ThumbnailSize:    w.ThumbnailSize,
		BudgetUSD:        w.BudgetUSD,
	}
	res := a.Run(ctx, item.WSIPath, item.Prompt)
	rec := RunRecord{RawPrediction: res.Answer, Trajectory: res.Trajectory, CostUSD: res.CostUSD}
	if res.Status != agent.StatusDone {
		rec.Error = res.FailureInfo
		return rec, fmt.Errorf("eval: agent run failed: %s", res.FailureInfo)
	}
	extracted := label.Extract(res.Answer, item.BenchmarkName, item.Options)
	rec.PredictedLabel = extracted.Label
	return rec, nil
}

// executeThumbnail sends only the slide thumbnail and forces an Answer
// action, retrying with a stronger prompt on a stray Crop (spec.md §4.14).
func executeThumbnail(ctx context.Context, w *Worker, item BenchmarkItem) (RunRecord, error) {
	metadata, err := w.Decoder.Open(ctx, item.WSIPath)
	if err != nil {
		return RunRecord{}, fmt.Errorf("eval: open slide: %w", err)
	}
	thumb, err := w.CropEngine.Thumbnail(ctx, item.WSIPath, metadata, w.ThumbnailSize)
	if err != nil {
		return RunRecord{}, fmt.Errorf("eval: thumbnail: %w", err)
	}

	sys := "You are an expert pathologist. Answer the question using only the provided thumbnail image. You must respond with an answer action; you may not request a crop."
	userText := fmt.Sprintf("Question: %s", item.Prompt)

	var lastResp llm.Response
	var totalCost float64
	for attempt := 0; attempt < maxThumbnailRetries; attempt++ {
		if attempt > 0 {
			userText = fmt.Sprintf("Question: %s\n\nYou must answer now; crop requests are not permitted in this mode.", item.Prompt)
		}
		messages := []llm.Message{
			{Role: "system", Text: sys},
			{Role: "user", Text: userText, ImageBase64: thumb.Base64JPEG},
		}
		resp, err := w.Provider.Call(ctx, messages)
		if err != nil {
			return RunRecord{CostUSD: totalCost}, fmt.Errorf("eval: provider call: %w", err)
		}
		lastResp = resp
		totalCost += llm.Cost(w.Provider.Model(), resp.InputTokens, resp.OutputTokens)
		if w.BudgetUSD > 0 && totalCost >= w.BudgetUSD {
			evalserver.RecordBudgetExceeded()
			budgetErr := &BudgetExceededError{SpentUSD: totalCost, BudgetUSD: w.BudgetUSD}
			return RunRecord{RawPrediction: resp.Text, CostUSD: totalCost}, budgetErr
		}
		act, err := action.ParseFinalStep(resp.Text, 1)
		if err == nil && act.Kind == action.KindAnswer {
			extracted := label.Extract(act.Answer, item.BenchmarkName, item.Options)
			return RunRecord{PredictedLabel: extracted.Label, RawPrediction: act.Answer, CostUSD: totalCost}, nil
		}
	}
	return RunRecord{RawPrediction: lastResp.Text, CostUSD: totalCost}, &StrayCropError{Attempts: maxThumbnailRetries}
}

// executePatch segments tissue, samples PatchesPerItem patch centers, tiles them
// into one collage image, and forces a single Answer action over it.
func executePatch(ctx context.Context, w *Worker, item BenchmarkItem, runIndex int) (RunRecord, error) {
	collage, err := buildPatchCollage(ctx, w, item, runIndex)
	if err != nil {
		return RunRecord{}, err
	}

	sys := "You are an expert pathologist. The image is a collage of tissue patches sampled from a whole-slide image. Answer the question using only these patches. You must respond with an answer action."
	userText := fmt.Sprintf("Question: %s", item.Prompt)
	messages := []llm.Message{
		{Role: "system", Text: sys},
		{Role: "user", Text: userText, ImageBase64: collage},
	}
	resp, err := w.Provider.Call(ctx, messages)
	if err != nil {
		return RunRecord{}, fmt.Errorf("eval: provider call: %w", err)
	}
	cost := llm.Cost(w.Provider.Model(), resp.InputTokens, resp.OutputTokens)
	act, err := action.ParseFinalStep(resp.Text, 1)
	if err != nil || act.Kind != action.KindAnswer {
		return RunRecord{RawPrediction: resp.Text, CostUSD: cost}, &StrayCropError{Attempts: 1}
	}
	extracted := label.Extract(act.Answer, item.BenchmarkName, item.Options)
	return RunRecord{PredictedLabel: extracted.Label, RawPrediction: act.Answer, CostUSD: cost}, nil
}

// executePatchVote samples PatchesPerItem patches, makes one concurrent LMM call
// per patch forcing an Answer, and majority-votes (C12) across the per-patch
// predictions.
func executePatchVote(ctx context.Context, w *Worker, item BenchmarkItem, runIndex int) (RunRecord, error) {
	metadata, err := w.Decoder.Open(ctx, item.WSIPath)
	if err != nil {
		return RunRecord{}, fmt.Errorf("eval: open slide: %w", err)
	}
	patches, err := samplePatches(ctx, w, item, metadata, runIndex)
	if err != nil {
		return RunRecord{}, err
	}

	sys := "You are an expert pathologist. Answer the question using only this single tissue patch. You must respond with an answer action."
	userText := fmt.Sprintf("Question: %s", item.Prompt)

	// Each patch is an independent LMM call with no shared state, so they
	// run concurrently (bounded by the provider's own rate limiter) rather
	// than one at a time; a patch that errors or returns a non-answer just
	// contributes nothing to the vote instead of failing the whole item.
	// Each goroutine below writes only to its own index, so the slices need
	// no extra synchronization. Cost is shared, so it accumulates under a
	// mutex; a goroutine that pushes the total over budget cancels gctx so
	// the rest stop issuing further calls.
	raws := make([]string, len(patches))
	labels := make([]string, len(patches))
	var (
		costMu    sync.Mutex
		totalCost float64
	)
	group, gctx := errgroup.WithContext(ctx)
	for i, patchImg := range patches {
		i, patchImg := i, patchImg
		group.Go(func() error {
			encoded, err := encodeJPEGBase64(patchImg, w.JPEGQuality)
			if err != nil {
				return fmt.Errorf("eval: encode patch: %w", err)
			}
			messages := []llm.Message{
				{Role: "system", Text: sys},
				{Role: "user", Text: userText, ImageBase64: encoded},
			}
			resp, err := w.Provider.Call(gctx, messages)
			if err != nil {
				return fmt.Errorf("eval: provider call: %w", err)
			}
			cost := llm.Cost(w.Provider.Model(), resp.InputTokens, resp.OutputTokens)
			costMu.Lock()
			totalCost += cost
			spent := totalCost
			costMu.Unlock()
			if w.BudgetUSD > 0 && spent >= w.BudgetUSD {
				evalserver.RecordBudgetExceeded()
				return &BudgetExceededError{SpentUSD: spent, BudgetUSD: w.BudgetUSD}
			}
			act, err := action.ParseFinalStep(resp.Text, 1)
			if err != nil || act.Kind != action.KindAnswer {
				return nil
			}
			extracted := label.Extract(act.Answer, item.BenchmarkName, item.Options)
			raws[i] = act.Answer
			labels[i] = extracted.Label
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return RunRecord{CostUSD: totalCost}, err
	}

	votes := make([]string, 0, len(labels))
	kept := make([]string, 0, len(raws))
	for i, l := range labels {
		if l != "" {
			votes = append(votes, l)
		}
		if raws[i] != "" {
			kept = append(kept, raws[i])
		}
	}
	if len(votes) == 0 {
		return RunRecord{CostUSD: totalCost}, &StrayCropError{Attempts: len(patches)}
	}
	return RunRecord{PredictedLabel: vote.Majority(votes), RawPrediction: fmt.Sprintf("%v", kept), CostUSD: totalCost}, nil
}

// buildPatchCollage samples tissue patches and tiles them into a single
// grid image, returning its base64 JPEG encoding.
func buildPatchCollage(ctx context.Context, w *Worker, item BenchmarkItem, runIndex int) (string, error) {
	metadata, err := w.Decoder.Open(ctx, item.WSIPath)
	if err != nil {
		return "", fmt.Errorf("eval: open slide: %w", err)
	}
	patches, err := samplePatches(ctx, w, item, metadata, runIndex)
	if err != nil {
		return "", err
	}
	collage := tilePatches(patches)
	return encodeJPEGBase64(collage, w.JPEGQuality)
}

// samplePatches segments the slide thumbnail for tissue, samples N patch
// centers uniformly from tissue pixels (deterministic per item/run via a
// seeded PCG source, matching evalmetrics.Bootstrap's reproducibility
// discipline), maps them to level-0 coordinates, and reads each
// patch_size x patch_size region directly from the decoder.
func samplePatches(ctx context.Context, w *Worker, item BenchmarkItem, metadata wsi.Metadata, runIndex int) ([]image.Image, error) {
	thumb, err := w.CropEngine.Thumbnail(ctx, item.WSIPath, metadata, w.ThumbnailSize)
	if err != nil {
		return nil, fmt.Errorf("eval: thumbnail for segmentation: %w", err)
	}
	thumbImg, err := decodeJPEGBase64(thumb.Base64JPEG)
	if err != nil {
		return nil, fmt.Errorf("eval: decode thumbnail: %w", err)
	}
	mask := segment.Segment(thumbImg)

	var tissueX, tissueY []int
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(x, y) {
				tissueX = append(tissueX, x)
				tissueY = append(tissueY, y)
			}
		}
	}
	if len(tissueX) == 0 {
		return nil, fmt.Errorf("eval: no tissue detected in thumbnail for %s", item.WSIPath)
	}

	seed := uint64(w.BaseSeed) ^ hashItemRun(item.BenchmarkID, runIndex)
	rng := mathrand.New(mathrand.NewPCG(seed, seed^0x2545F4914F6CDD1D))

	l0 := metadata.Level0()
	patches := make([]image.Image, 0, w.PatchesPerItem)
	for i := 0; i < w.PatchesPerItem; i++ {
		idx := rng.IntN(len(tissueX))
		l0X := tissueX[idx] * l0.Width / mask.Width
		l0Y := tissueY[idx] * l0.Height / mask.Height
		px := clampInt(l0X-w.PatchSize/2, 0, l0.Width-w.PatchSize)
		py := clampInt(l0Y-w.PatchSize/2, 0, l0.Height-w.PatchSize)
		img, err := w.Decoder.ReadRegion(ctx, item.WSIPath, 0, px, py, w.PatchSize, w.PatchSize)
		if err != nil {
			return nil, fmt.Errorf("eval: read patch: %w", err)
		}
		patches = append(patches, img)
	}
	return patches, nil
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hashItemRun derives a small deterministic perturbation from an item id and
// run index so repeated runs_per_item attempts resample fresh patches.
func hashItemRun(itemID string, runIndex int) uint64 {
	var h uint64 = 1469598103934665603
	for _, c := range itemID {
		h ^= uint64(c)
		h *= 1099511628211
	}
	h ^= uint64(runIndex+1) * 1099511628211
	return h
}

// tilePatches arranges patches into a roughly-square grid on a single
// canvas.
func tilePatches(patches []image.Image) image.Image {
	n := len(patches)
	cols := 1
	for cols*cols < n {
		cols++
	}
	rows := (n + cols - 1) / cols

	tileW, tileH := 0, 0
	for _, p := range patches {
		b := p.Bounds()
		if b.Dx() > tileW {
			tileW = b.Dx()
		}
		if b.Dy() > tileH {
			tileH = b.Dy()
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, cols*tileW, rows*tileH))
	for i, p := range patches {
		col, row := i%cols, i/cols
		dstRect := image.Rect(col*tileW, row*tileH, col*tileW+tileW, row*tileH+tileH)
		draw.Draw(canvas, dstRect, p, p.Bounds().Min, draw.Src)
	}
	return canvas
}

func encodeJPEGBase64(img image.Image, quality int) (string, error) {
	buf := mempool.GetBytes(64 * 1024)
	defer mempool.PutBytes(buf)
	w := bytes.NewBuffer(buf)
	w.Reset()
	if err := jpeg.Encode(w, img, &jpeg.Options{Quality: quality}); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(w.Bytes()), nil
}

func decodeJPEGBase64(b64 string) (image.Image, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	return img, nil
}
