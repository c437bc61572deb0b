package director

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-studio/internal/catalog"
	"media-studio/internal/compositor"
	"media-studio/internal/design"
	"media-studio/internal/gemini"
)

type fakeModel struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests []gemini.Request
}

func (m *fakeModel) Generate(_ context.Context, req gemini.Request) (gemini.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.err != nil {
		return gemini.Response{}, m.err
	}
	if len(m.replies) == 0 {
		return gemini.Response{}, errors.New("no scripted reply")
	}
	text := m.replies[0]
	m.replies = m.replies[1:]
	return gemini.Response{Text: text}, nil
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func samplePNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 12, 12))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func post() catalog.Product {
	return catalog.Default().Resolve("post")
}

func TestNegotiate_MergesModelSpec(t *testing.T) {
	model := &fakeModel{replies: []string{
		"```json\n" + `{"updatedSpec":{"vibe":"Neon Night","eventTitle":"","includeDate":true},"assistantResponse":"Neon protocol engaged."}` + "\n```",
	}}
	d := New(Options{Model: model})

	current := design.Spec{EventTitle: "Recipe Labs", Vibe: "Calm", Date: "MAR 7, 2026"}
	got := d.Negotiate(context.Background(), "make it neon", nil, current)

	assert.False(t, got.Fallback)
	assert.Equal(t, "Neon protocol engaged.", got.Reply)
	assert.Equal(t, "Neon Night", got.Spec.Vibe)
	assert.Equal(t, "Recipe Labs", got.Spec.EventTitle, "empty title keeps the current one")
	assert.True(t, got.Spec.IncludeDate)
	assert.Equal(t, design.DefaultFontFamily, got.Spec.FontFamily)
}

func TestNegotiate_SendsRecentHistoryOnly(t *testing.T) {
	model := &fakeModel{replies: []string{`{"updatedSpec":{},"assistantResponse":"ok"}`}}
	d := New(Options{Model: model})

	var history []gemini.Message
	for i := 0; i < 10; i++ {
		history = append(history, gemini.Message{Role: "user", Text: fmt.Sprintf("m%d", i)})
	}
	d.Negotiate(context.Background(), "hello", history, design.Spec{})

	require.Equal(t, 1, model.calls())
	req := model.requests[0]
	require.Len(t, req.History, historyWindow)
	assert.Equal(t, "m4", req.History[0].Text)
	assert.Equal(t, "hello", req.Prompt)
	assert.Contains(t, req.System, "CURRENT SPEC")
	assert.NotNil(t, req.Schema)
}

func TestNegotiate_Fallbacks(t *testing.T) {
	current := design.Spec{EventTitle: "Keep Me", Vibe: "Calm"}.Normalize()

	tests := []struct {
		name  string
		model Model
	}{
		{name: "no model"},
		{name: "model error", model: &fakeModel{err: errors.New("timeout")}},
		{name: "safety refusal", model: &fakeModel{err: fmt.Errorf("%w: SAFETY", gemini.ErrSafetyRefusal)}},
		{name: "garbage", model: &fakeModel{replies: []string{"I cannot answer in JSON today"}}},
		{name: "empty reply", model: &fakeModel{replies: []string{`{"updatedSpec":{"vibe":"X"},"assistantResponse":"  "}`}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(Options{Model: tt.model})
			got := d.Negotiate(context.Background(), "anything", nil, current)

			assert.True(t, got.Fallback)
			assert.Equal(t, ApologyReply, got.Reply)
			assert.Equal(t, current, got.Spec)
		})
	}
}

func TestSuggest_ValidatesAndCaps(t *testing.T) {
	model := &fakeModel{replies: []string{`{"suggestions":[
		{"title":"ONE","spec":{"eventTitle":"Recipe Labs","vibe":"A"}},
		{"title":"","spec":{"vibe":"dropped"}},
		{"title":"TWO","spec":{"vibe":"B"}},
		{"title":"THREE","spec":{"vibe":"C"}},
		{"title":"FOUR","spec":{"vibe":"D"}}
	]}`}}
	d := New(Options{Model: model})

	got := d.Suggest(context.Background(), post(), design.Spec{})

	assert.False(t, got.Fallback)
	require.Len(t, got.Items, 3)
	assert.Equal(t, []string{"ONE", "TWO", "THREE"}, []string{got.Items[0].Title, got.Items[1].Title, got.Items[2].Title})
	assert.Equal(t, "A", *got.Items[0].Spec.Vibe)
}

func TestSuggest_TruncatedFencedResponse(t *testing.T) {
	model := &fakeModel{replies: []string{"```json\n{\"suggestions\":[{\"title\":\"A\",\"spec\":{\"eventTitle\":\"X\"}}]"}}
	d := New(Options{Model: model})

	got := d.Suggest(context.Background(), post(), design.Spec{})

	require.Len(t, got.Items, 1)
	assert.Equal(t, "A", got.Items[0].Title)
	assert.Equal(t, "X", *got.Items[0].Spec.EventTitle)
}

func TestSuggest_CachesPerProductAndSpec(t *testing.T) {
	reply := `{"suggestions":[{"title":"CACHED","spec":{"vibe":"A"}}]}`
	model := &fakeModel{replies: []string{reply, reply}}
	d := New(Options{Model: model})
	ctx := context.Background()

	d.Suggest(ctx, post(), design.Spec{})
	got := d.Suggest(ctx, post(), design.Spec{})
	assert.Equal(t, "CACHED", got.Items[0].Title)
	assert.Equal(t, 1, model.calls())

	d.Suggest(ctx, post(), design.Spec{Vibe: "changed"})
	assert.Equal(t, 2, model.calls())
}

func TestSuggest_FallbackIsNotCached(t *testing.T) {
	model := &fakeModel{replies: []string{`{"suggestions":[]}`, `{"suggestions":[{"title":"LATER","spec":{}}]}`}}
	d := New(Options{Model: model})
	ctx := context.Background()

	first := d.Suggest(ctx, post(), design.Spec{})
	assert.True(t, first.Fallback)
	require.Len(t, first.Items, 2)
	assert.Equal(t, "MODERN_TECH", first.Items[0].Title)
	assert.Equal(t, "CREATIVE_BOLD", first.Items[1].Title)

	second := d.Suggest(ctx, post(), design.Spec{})
	assert.False(t, second.Fallback)
	assert.Equal(t, "LATER", second.Items[0].Title)
}

func TestClassifyEdit(t *testing.T) {
	tests := []struct {
		instruction string
		delta       compositor.EditDelta
		palette     string
		includeDate *bool
	}{
		{
			instruction: "make it darker and move the text to the top",
			delta:       compositor.EditDelta{OverlayOpacity: "darker", TextPosition: "top"},
			palette:     darkPalette,
		},
		{
			instruction: "Brighter please, text at the BOTTOM, bigger",
			delta:       compositor.EditDelta{OverlayOpacity: "lighter", TextPosition: "bottom", TextSize: "larger"},
			palette:     lightPalette,
		},
		{
			instruction: "centre it from the top, smaller",
			delta:       compositor.EditDelta{TextPosition: "center", TextSize: "smaller"},
		},
		{instruction: "remove date", includeDate: design.Bool(false)},
		{instruction: "please include date", includeDate: design.Bool(true)},
		{instruction: "something unrelated entirely"},
		{instruction: ""},
	}

	for _, tt := range tests {
		t.Run(tt.instruction, func(t *testing.T) {
			patch, delta := ClassifyEdit(tt.instruction)

			assert.Equal(t, tt.delta, delta)
			if tt.palette == "" {
				assert.Nil(t, patch.ColorPalette)
			} else {
				require.NotNil(t, patch.ColorPalette)
				assert.Equal(t, tt.palette, *patch.ColorPalette)
			}
			assert.Equal(t, tt.includeDate, patch.IncludeDate)
		})
	}
}

func TestPlanEdit_FallbackOnModelFailure(t *testing.T) {
	d := New(Options{Model: &fakeModel{err: errors.New("503")}})

	plan, err := d.PlanEdit(context.Background(), EditRequest{
		Instruction: "make it darker and move the text to the top",
		Product:     post(),
		Spec:        design.Spec{ColorPalette: "Original"},
	})

	require.NoError(t, err)
	assert.True(t, plan.Fallback)
	assert.Equal(t, compositor.EditDelta{OverlayOpacity: "darker", TextPosition: "top"}, plan.Delta)
	assert.Equal(t, darkPalette, plan.Spec.ColorPalette)
}

func TestPlanEdit_UnmatchedFallbackIsNoop(t *testing.T) {
	d := New(Options{})
	current := design.Spec{EventTitle: "Same", Vibe: "Calm"}

	plan, err := d.PlanEdit(context.Background(), EditRequest{Instruction: "hmm", Product: post(), Spec: current})

	require.NoError(t, err)
	assert.True(t, plan.Delta.IsZero())
	assert.Equal(t, current.Normalize(), plan.Spec)
}

func TestPlanEdit_ModelDelta(t *testing.T) {
	model := &fakeModel{replies: []string{`{"textPosition":"Bottom","textSize":"huge","overlayOpacity":"lighter","fontFamily":"Montserrat","includeDate":false}`}}
	d := New(Options{Model: model})

	plan, err := d.PlanEdit(context.Background(), EditRequest{
		Rendered:    []byte("png"),
		Instruction: "switch font",
		Product:     post(),
		Spec:        design.Spec{IncludeDate: true, Date: "MAR 7"},
	})

	require.NoError(t, err)
	assert.False(t, plan.Fallback)
	assert.Equal(t, compositor.EditDelta{TextPosition: "bottom", OverlayOpacity: "lighter"}, plan.Delta)
	assert.Equal(t, "Montserrat", plan.Spec.FontFamily)
	assert.False(t, plan.Spec.IncludeDate)

	require.Len(t, model.requests[0].Images, 1)
	assert.Equal(t, "image/png", model.requests[0].Images[0].MimeType)
}

func TestPlanEdit_SafetyRefusalIsAnError(t *testing.T) {
	d := New(Options{Model: &fakeModel{err: fmt.Errorf("plan: %w", gemini.ErrSafetyRefusal)}})

	_, err := d.PlanEdit(context.Background(), EditRequest{Instruction: "darker", Product: post()})
	assert.ErrorIs(t, err, gemini.ErrSafetyRefusal)
}

func TestRefine_RendersFromOriginal(t *testing.T) {
	var gotSrc []byte
	var gotDelta compositor.EditDelta
	render := func(src []byte, _ catalog.Product, _ design.Spec, delta *compositor.EditDelta) ([]byte, error) {
		gotSrc = src
		gotDelta = *delta
		return []byte("new"), nil
	}
	d := New(Options{Render: render})

	res, err := d.Refine(context.Background(), EditRequest{
		Rendered:    []byte("branded"),
		Original:    []byte("upload"),
		Instruction: "top",
		Product:     post(),
	})

	require.NoError(t, err)
	assert.Equal(t, []byte("upload"), gotSrc)
	assert.Equal(t, compositor.PositionTop, gotDelta.TextPosition)
	assert.Equal(t, []byte("new"), res.Image)
}

func TestRefine_UsesRenderedWhenNoOriginal(t *testing.T) {
	var gotSrc []byte
	render := func(src []byte, _ catalog.Product, _ design.Spec, _ *compositor.EditDelta) ([]byte, error) {
		gotSrc = src
		return []byte("new"), nil
	}
	d := New(Options{Render: render})

	_, err := d.Refine(context.Background(), EditRequest{Rendered: []byte("branded"), Product: post()})
	require.NoError(t, err)
	assert.Equal(t, []byte("branded"), gotSrc)

	_, err = d.Refine(context.Background(), EditRequest{Product: post()})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRefine_RealCompositor(t *testing.T) {
	d := New(Options{})
	src := samplePNG(t, color.RGBA{R: 180, G: 60, B: 20, A: 255})
	first, err := compositor.Render(src, post(), design.Spec{}, nil)
	require.NoError(t, err)

	res, err := d.Refine(context.Background(), EditRequest{
		Rendered:    first,
		Original:    src,
		Instruction: "make it darker",
		Product:     post(),
	})

	require.NoError(t, err)
	assert.NotEqual(t, first, res.Image)

	_, err = d.Refine(context.Background(), EditRequest{Original: []byte("broken"), Product: post()})
	assert.ErrorIs(t, err, compositor.ErrDecode)
}

func TestDirect(t *testing.T) {
	src := []byte("jpeg-bytes")

	d := New(Options{})
	text, err := d.Direct(context.Background(), DirectionRequest{Source: src, Product: post()})
	require.NoError(t, err)
	assert.Empty(t, text)

	model := &fakeModel{replies: []string{"  Keep the title clear of the face.  "}}
	d = New(Options{Model: model})
	text, err = d.Direct(context.Background(), DirectionRequest{
		Source:   src,
		MimeType: "image/jpeg",
		Product:  post(),
		Note:     "summer launch",
		Template: []byte("template"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Keep the title clear of the face.", text)

	req := model.requests[0]
	require.Len(t, req.Images, 2)
	assert.Equal(t, "image/jpeg", req.Images[0].MimeType)
	assert.Contains(t, req.Prompt, "summer launch")
	assert.Contains(t, req.Prompt, "previously approved asset")

	d = New(Options{Model: &fakeModel{err: gemini.ErrSafetyRefusal}})
	_, err = d.Direct(context.Background(), DirectionRequest{Source: src, Product: post()})
	assert.ErrorIs(t, err, gemini.ErrSafetyRefusal)
}
