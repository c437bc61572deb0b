package studio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-studio/internal/catalog"
	"media-studio/internal/compositor"
	"media-studio/internal/design"
	"media-studio/internal/director"
	"media-studio/internal/gemini"
)

type scriptedModel struct {
	reply string
	err   error
}

func (m scriptedModel) Generate(context.Context, gemini.Request) (gemini.Response, error) {
	return gemini.Response{Text: m.reply}, m.err
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func echoRender(src []byte, p catalog.Product, _ design.Spec, d *compositor.EditDelta) ([]byte, error) {
	out := fmt.Sprintf("%s|%s", src, p.ID)
	if d != nil {
		out += fmt.Sprintf("|%s|%s|%s", d.TextPosition, d.TextSize, d.OverlayOpacity)
	}
	return []byte(out), nil
}

func fixedNow() time.Time {
	return time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)
}

func newStudio(t *testing.T, render director.RenderFunc, model director.Model) *Studio {
	t.Helper()
	if render == nil {
		render = compositor.Render
	}
	dir := director.New(director.Options{Model: model, Render: render})
	return New(Options{Director: dir, Render: render, Now: fixedNow})
}

func completedAsset(t *testing.T, s *Studio, data []byte) Asset {
	t.Helper()
	added := s.AddItems([]Upload{{Data: data, MimeType: "image/png"}}, "post")
	require.Len(t, added, 1)
	_, err := s.SynthesizeAll(context.Background())
	require.NoError(t, err)
	a, err := s.Asset(added[0].ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, a.Status)
	return a
}

func TestScenario_UploadSynthesizeRemove(t *testing.T) {
	s := newStudio(t, nil, nil)
	ctx := context.Background()

	added := s.AddItems([]Upload{
		{Data: solidPNG(t, color.RGBA{R: 220, A: 255})},
		{Data: solidPNG(t, color.RGBA{B: 220, A: 255})},
	}, "post")
	require.Len(t, added, 2)
	for _, a := range added {
		assert.Equal(t, StatusIdle, a.Status)
		assert.Equal(t, "post", a.ProductID)
		assert.Len(t, a.ID, 6)
		assert.Equal(t, strings.ToUpper(a.ID), a.ID)
	}

	sum, err := s.SynthesizeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Completed: 2}, sum)

	assets := s.Assets()
	require.Len(t, assets, 2)
	for _, a := range assets {
		assert.Equal(t, StatusCompleted, a.Status)
		img, err := png.Decode(bytes.NewReader(a.Result))
		require.NoError(t, err)
		assert.Equal(t, image.Pt(1080, 1080), img.Bounds().Size())
	}
	assert.False(t, bytes.Equal(assets[0].Result, assets[1].Result))

	require.NoError(t, s.Remove(assets[0].ID))
	left := s.Assets()
	require.Len(t, left, 1)
	assert.Equal(t, assets[1].ID, left[0].ID)

	assert.ErrorIs(t, s.Remove("NOPE00"), ErrNotFound)
}

func TestAddItems_SkipsEmptyAndUsesSelectedProduct(t *testing.T) {
	s := newStudio(t, echoRender, nil)

	_, err := s.SelectProduct("story")
	require.NoError(t, err)
	_, err = s.SelectProduct("missing")
	assert.ErrorIs(t, err, ErrUnknownProduct)

	added := s.AddItems([]Upload{{Data: []byte("a")}, {}, {Data: []byte("b"), Note: "hero shot"}}, "")
	require.Len(t, added, 2)
	assert.Equal(t, "story", added[0].ProductID)
	assert.Equal(t, "hero shot", added[1].Note)

	fallback := s.AddItems([]Upload{{Data: []byte("c")}}, "unknown-product")
	assert.Equal(t, "flyer", fallback[0].ProductID)

	assert.Equal(t, "VAULT: ADDED_1_PAYLOADS", s.Log()[0])
}

func TestSynthesizeAll_Sequential(t *testing.T) {
	var (
		mu            sync.Mutex
		maxProcessing int
		order         []string
		s             *Studio
	)
	render := func(src []byte, p catalog.Product, spec design.Spec, d *compositor.EditDelta) ([]byte, error) {
		st := s.Stats()
		mu.Lock()
		if st.Processing > maxProcessing {
			maxProcessing = st.Processing
		}
		order = append(order, string(src))
		mu.Unlock()
		time.Sleep(2 * time.Millisecond)
		return echoRender(src, p, spec, d)
	}
	s = newStudio(t, render, nil)

	var want []string
	var uploads []Upload
	for i := 0; i < 6; i++ {
		data := fmt.Sprintf("img-%d", i)
		want = append(want, data)
		uploads = append(uploads, Upload{Data: []byte(data)})
	}
	s.AddItems(uploads, "post")

	sum, err := s.SynthesizeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Completed)
	assert.Equal(t, 1, maxProcessing)
	assert.Equal(t, want, order)
	assert.Equal(t, Stats{Total: 6, Completed: 6}, s.Stats())
}

func TestSynthesizeAll_FailureDoesNotAbortBatch(t *testing.T) {
	s := newStudio(t, nil, nil)
	ctx := context.Background()

	s.AddItems([]Upload{
		{Data: solidPNG(t, color.White)},
		{Data: []byte("not an image")},
		{Data: solidPNG(t, color.Black)},
	}, "story")

	sum, err := s.SynthesizeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Completed: 2, Failed: 1}, sum)

	failed := s.Assets()[1]
	assert.Equal(t, StatusError, failed.Status)
	assert.Contains(t, failed.Err, "decode source image")
	assert.Nil(t, failed.Result)

	// Only the failed asset is eligible again.
	sum, err = s.SynthesizeAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Failed: 1}, sum)

	assert.ErrorIs(t, s.Retry(ctx, s.Assets()[0].ID), ErrNotRetryable)
	assert.Error(t, s.Retry(ctx, failed.ID))
	assert.ErrorIs(t, s.Retry(ctx, "NOPE00"), ErrNotFound)
}

func TestSynthesizeAll_NothingPending(t *testing.T) {
	s := newStudio(t, echoRender, nil)

	sum, err := s.SynthesizeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
	assert.Empty(t, s.Log())
}

func TestRenderSlotIsExclusive(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	render := func(src []byte, p catalog.Product, spec design.Spec, d *compositor.EditDelta) ([]byte, error) {
		if string(src) == "slow" {
			started <- struct{}{}
			<-release
		}
		return echoRender(src, p, spec, d)
	}
	s := newStudio(t, render, nil)
	ctx := context.Background()

	fast := completedAsset(t, s, []byte("fast"))
	require.NoError(t, s.Refine(fast.ID))

	s.AddItems([]Upload{{Data: []byte("slow")}}, "post")
	done := make(chan error, 1)
	go func() {
		_, err := s.SynthesizeAll(ctx)
		done <- err
	}()
	<-started

	_, err := s.SynthesizeAll(ctx)
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, s.Retry(ctx, fast.ID), ErrBusy)
	_, err = s.Chat(ctx, "make it darker")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, Refining{AssetID: fast.ID}, s.Mode())

	close(release)
	require.NoError(t, <-done)
}

func TestRemoveDuringRenderDropsResult(t *testing.T) {
	var s *Studio
	render := func(src []byte, p catalog.Product, spec design.Spec, d *compositor.EditDelta) ([]byte, error) {
		for _, a := range s.Assets() {
			if string(a.Source) == string(src) {
				require.NoError(t, s.Remove(a.ID))
			}
		}
		return echoRender(src, p, spec, d)
	}
	s = newStudio(t, render, nil)
	s.AddItems([]Upload{{Data: []byte("doomed")}}, "post")

	sum, err := s.SynthesizeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Dropped: 1}, sum)
	assert.Empty(t, s.Assets())
}

func TestRemixLockConsumedOnce(t *testing.T) {
	s := newStudio(t, echoRender, nil)

	done := completedAsset(t, s, []byte("base"))
	idle := s.AddItems([]Upload{{Data: []byte("idle")}}, "post")[0]

	assert.ErrorIs(t, s.Remix(idle.ID), ErrNotRemixable)
	assert.ErrorIs(t, s.Remix("NOPE00"), ErrNotFound)
	_, locked := s.RemixTemplate()
	assert.False(t, locked)

	require.NoError(t, s.Remix(done.ID))
	id, locked := s.RemixTemplate()
	assert.True(t, locked)
	assert.Equal(t, done.ID, id)

	second := s.AddItems([]Upload{{Data: []byte("x")}, {Data: []byte("y")}}, "post")
	for _, a := range second {
		assert.True(t, a.Remixing)
	}
	_, locked = s.RemixTemplate()
	assert.False(t, locked)

	third := s.AddItems([]Upload{{Data: []byte("z")}}, "post")
	assert.False(t, third[0].Remixing)

	_, err := s.SynthesizeAll(context.Background())
	require.NoError(t, err)
	for _, a := range s.Assets() {
		assert.False(t, a.Remixing, a.ID)
	}
}

func TestRemixTemplateReachesArtDirection(t *testing.T) {
	var mu sync.Mutex
	var images []int
	model := recordingModel(func(req gemini.Request) {
		mu.Lock()
		images = append(images, len(req.Images))
		mu.Unlock()
	})
	s := newStudio(t, echoRender, model)

	done := completedAsset(t, s, []byte("base"))
	require.NoError(t, s.Remix(done.ID))
	s.AddItems([]Upload{{Data: []byte("remixed")}}, "post")
	_, err := s.SynthesizeAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, images)
	a := s.Assets()[1]
	assert.Equal(t, "direction", a.Direction)
}

type recordingModel func(gemini.Request)

func (m recordingModel) Generate(_ context.Context, req gemini.Request) (gemini.Response, error) {
	m(req)
	return gemini.Response{Text: "direction"}, nil
}

func TestArtDirection(t *testing.T) {
	t.Run("failure is ignored", func(t *testing.T) {
		s := newStudio(t, echoRender, scriptedModel{err: errors.New("503 unavailable")})
		a := completedAsset(t, s, []byte("img"))
		assert.Empty(t, a.Direction)
	})

	t.Run("safety refusal fails the render", func(t *testing.T) {
		s := newStudio(t, echoRender, scriptedModel{err: fmt.Errorf("%w: IMAGE_SAFETY", gemini.ErrSafetyRefusal)})
		s.AddItems([]Upload{{Data: []byte("img")}}, "post")

		sum, err := s.SynthesizeAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Failed)

		a := s.Assets()[0]
		assert.Equal(t, StatusError, a.Status)
		assert.Contains(t, a.Err, "declined")
	})
}

func TestRefine_PreservesSourceAcrossEdits(t *testing.T) {
	s := newStudio(t, nil, nil)
	ctx := context.Background()
	src := solidPNG(t, color.RGBA{R: 90, G: 160, B: 40, A: 255})

	a := completedAsset(t, s, src)
	prev := a.Result

	for _, instruction := range []string{"make it darker", "move the text to the top", "bigger text please", "brighter"} {
		require.NoError(t, s.Refine(a.ID))
		assert.Equal(t, Refining{AssetID: a.ID}, s.Mode())

		reply, err := s.Chat(ctx, instruction)
		require.NoError(t, err)
		assert.Contains(t, reply.Content, "Refinement complete")
		assert.Equal(t, Negotiating{}, s.Mode())

		got, err := s.Asset(a.ID)
		require.NoError(t, err)
		assert.Equal(t, src, got.Source)
		assert.Equal(t, StatusCompleted, got.Status)
		assert.False(t, bytes.Equal(prev, got.Result), instruction)
		prev = got.Result
	}

	assert.Equal(t, design.Default(fixedNow()), s.Spec(), "refine never writes the shared spec")
}

func TestRefine_FailureKeepsResultAndSession(t *testing.T) {
	calls := 0
	render := func(src []byte, p catalog.Product, spec design.Spec, d *compositor.EditDelta) ([]byte, error) {
		calls++
		if calls > 1 {
			return nil, &compositor.SurfaceError{Op: "canvas lost"}
		}
		return echoRender(src, p, spec, d)
	}
	s := newStudio(t, render, nil)

	a := completedAsset(t, s, []byte("img"))
	require.NoError(t, s.Refine(a.ID))

	reply, err := s.Chat(context.Background(), "darker")
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "Error during refinement")

	got, err := s.Asset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, a.Result, got.Result)
	assert.Equal(t, Refining{AssetID: a.ID}, s.Mode())
}

func TestRefine_SafetyRefusalSurfaces(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	a := completedAsset(t, s, []byte("img"))

	refusing := New(Options{
		Director: director.New(director.Options{Model: scriptedModel{err: gemini.ErrSafetyRefusal}, Render: echoRender}),
		Render:   echoRender,
	})
	refusing.assets = []*Asset{{ID: a.ID, Source: a.Source, Result: a.Result, Status: StatusCompleted, ProductID: "post"}}
	require.NoError(t, refusing.Refine(a.ID))

	reply, err := refusing.Chat(context.Background(), "make it darker")
	require.NoError(t, err)
	assert.Contains(t, reply.Content, "declined")

	got, _ := refusing.Asset(a.ID)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, a.Result, got.Result)
}

func TestRefine_Preconditions(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	idle := s.AddItems([]Upload{{Data: []byte("img")}}, "post")[0]

	assert.ErrorIs(t, s.Refine("NOPE00"), ErrNotFound)
	assert.ErrorIs(t, s.Refine(idle.ID), ErrNoResult)
	assert.Equal(t, Negotiating{}, s.Mode())
}

func TestRemoveEndsRefineSession(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	a := completedAsset(t, s, []byte("img"))
	b := completedAsset(t, s, []byte("other"))

	require.NoError(t, s.Refine(a.ID))
	require.NoError(t, s.Remove(b.ID))
	assert.Equal(t, Refining{AssetID: a.ID}, s.Mode())

	require.NoError(t, s.Remove(a.ID))
	assert.Equal(t, Negotiating{}, s.Mode())

	require.NoError(t, s.Refine(completedAsset(t, s, []byte("third")).ID))
	s.ExitRefine()
	assert.Equal(t, Negotiating{}, s.Mode())
}

func TestChat_Negotiates(t *testing.T) {
	model := scriptedModel{reply: `{"updatedSpec":{"vibe":"Neon Night","eventTitle":"Launch Party"},"assistantResponse":"Neon locked."}`}
	s := newStudio(t, echoRender, model)

	reply, err := s.Chat(context.Background(), "  go neon  ")
	require.NoError(t, err)
	assert.Equal(t, "Neon locked.", reply.Content)
	assert.Equal(t, "Neon Night", s.Spec().Vibe)
	assert.Equal(t, "Launch Party", s.Spec().EventTitle)

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, Message{Role: RoleUser, Content: "go neon", Time: fixedNow()}, history[0])
	assert.Equal(t, RoleAssistant, history[1].Role)
	assert.Equal(t, "DIRECTOR: SPEC_SYNCED", s.Log()[0])

	_, err = s.Chat(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestChat_NegotiatorClearsVibe(t *testing.T) {
	model := scriptedModel{reply: `{"updatedSpec":{"vibe":""},"assistantResponse":"Tagline removed."}`}
	s := newStudio(t, echoRender, model)

	s.UpdateSpec(design.Patch{Vibe: design.String("Neon Night"), EventTitle: design.String("Launch")})
	require.Equal(t, "Neon Night", s.Spec().Vibe)

	reply, err := s.Chat(context.Background(), "remove the tagline")
	require.NoError(t, err)
	assert.Equal(t, "Tagline removed.", reply.Content)
	assert.Empty(t, s.Spec().Vibe)
	assert.Equal(t, "Launch", s.Spec().EventTitle)
}

func TestUpdateSpec_EmptyStringClearsVibe(t *testing.T) {
	s := newStudio(t, echoRender, nil)

	s.UpdateSpec(design.Patch{Vibe: design.String("Neon Night")})
	got := s.UpdateSpec(design.Patch{Vibe: design.String("")})

	assert.Empty(t, got.Vibe)
	assert.Empty(t, s.Spec().Vibe)
}

func TestChat_NegotiationFallbackKeepsSpec(t *testing.T) {
	s := newStudio(t, echoRender, scriptedModel{err: errors.New("network down")})
	before := s.Spec()

	reply, err := s.Chat(context.Background(), "make it pop")
	require.NoError(t, err)
	assert.Equal(t, director.ApologyReply, reply.Content)
	assert.Equal(t, before, s.Spec())
	assert.Len(t, s.History(), 2)
}

func TestChat_RefineWithoutResultFallsThroughToNegotiator(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	a := completedAsset(t, s, []byte("img"))
	require.NoError(t, s.Refine(a.ID))

	s.mu.Lock()
	s.findLocked(a.ID).Result = nil
	s.mu.Unlock()

	reply, err := s.Chat(context.Background(), "darker")
	require.NoError(t, err)
	assert.Equal(t, director.ApologyReply, reply.Content)
}

func TestSuggestions(t *testing.T) {
	s := newStudio(t, echoRender, nil)

	items := s.Suggestions(context.Background(), "banner")
	require.Len(t, items, 2)
	assert.Equal(t, "DIRECTOR: SUGGESTION_FAULT", s.Log()[0])

	msg, err := s.ApplySuggestion(0)
	require.NoError(t, err)
	assert.Equal(t, `DIRECTOR: Protocol "MODERN_TECH" locked. Applied specialized Web Banner blueprint.`, msg.Content)

	spec := s.Spec()
	assert.Equal(t, "Recipe Labs", spec.EventTitle)
	assert.Equal(t, "Modern Tech", spec.Vibe)
	assert.Equal(t, "Lemon & Forest Gradient", spec.ColorPalette)

	_, err = s.ApplySuggestion(5)
	assert.ErrorIs(t, err, ErrNoSuggestion)
}

func TestExport(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	a := completedAsset(t, s, []byte("img"))
	idle := s.AddItems([]Upload{{Data: []byte("later")}}, "post")[0]

	name, data, err := s.Export(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "RecipeLabs_POST_"+a.ID+".png", name)
	assert.Equal(t, a.Result, data)

	_, _, err = s.Export(idle.ID)
	assert.ErrorIs(t, err, ErrNoResult)
	_, _, err = s.Export("NOPE00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssetsAreCopies(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	a := completedAsset(t, s, []byte("img"))

	a.Result[0] = 'X'
	a.Source[0] = 'X'

	got, err := s.Asset(a.ID)
	require.NoError(t, err)
	assert.Equal(t, byte('i'), got.Source[0])
	assert.Equal(t, byte('i'), got.Result[0])
}

func TestClear(t *testing.T) {
	s := newStudio(t, echoRender, nil)
	a := completedAsset(t, s, []byte("img"))
	require.NoError(t, s.Remix(a.ID))
	require.NoError(t, s.Refine(a.ID))

	s.Clear()

	assert.Empty(t, s.Assets())
	assert.Equal(t, Negotiating{}, s.Mode())
	assert.Equal(t, []string{"VAULT: SYSTEM_FLUSH"}, s.Log())
	_, locked := s.RemixTemplate()
	assert.True(t, locked)
}

func TestLogAndHistoryAreBounded(t *testing.T) {
	s := New(Options{Render: echoRender, MaxHistory: 4, Now: fixedNow})

	for i := 0; i < 60; i++ {
		s.AddItems([]Upload{{Data: []byte("x")}}, "post")
	}
	log := s.Log()
	assert.Len(t, log, maxLogEntries)

	for i := 0; i < 3; i++ {
		_, err := s.Chat(context.Background(), fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
	}
	history := s.History()
	require.Len(t, history, 4)
	assert.Equal(t, "msg 1", history[0].Content)
}
