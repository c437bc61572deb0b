// Package studio owns one working batch of assets, the shared design spec
// and the chat that edits them.
package studio

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"media-studio/internal/catalog"
	"media-studio/internal/compositor"
	"media-studio/internal/design"
	"media-studio/internal/director"
)

const (
	DefaultBrandPrefix = "RecipeLabs"
	maxLogEntries      = 50
)

type Options struct {
	Catalog  *catalog.Catalog
	Store    *design.Store
	Director *director.Director
	// Render defaults to compositor.Render.
	Render      director.RenderFunc
	BrandPrefix string
	MaxHistory  int
	Now         func() time.Time
	Logger      *slog.Logger
}

type Studio struct {
	catalog     *catalog.Catalog
	store       *design.Store
	director    *director.Director
	render      director.RenderFunc
	brandPrefix string
	maxHistory  int
	now         func() time.Time
	logger      *slog.Logger

	// slot is held for the whole of any render operation.
	slot *semaphore.Weighted

	mu          sync.Mutex
	assets      []*Asset
	selected    catalog.Product
	mode        Mode
	template    *remixTemplate
	history     []Message
	log         []string
	suggestions []director.Suggestion
	suggestFor  catalog.Product
}

func New(opts Options) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	store := opts.Store
	if store == nil {
		store = design.NewStore(design.Default(now()))
	}
	render := opts.Render
	if render == nil {
		render = compositor.Render
	}
	dir := opts.Director
	if dir == nil {
		dir = director.New(director.Options{Render: render, Logger: logger})
	}
	prefix := opts.BrandPrefix
	if prefix == "" {
		prefix = DefaultBrandPrefix
	}
	maxHistory := opts.MaxHistory
	if maxHistory <= 0 {
		maxHistory = 50
	}

	return &Studio{
		catalog:     cat,
		store:       store,
		director:    dir,
		render:      render,
		brandPrefix: prefix,
		maxHistory:  maxHistory,
		now:         now,
		logger:      logger,
		slot:        semaphore.NewWeighted(1),
		selected:    cat.Products()[0],
		mode:        Negotiating{},
	}
}

func (s *Studio) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Studio) Spec() design.Spec {
	return s.store.Get()
}

// UpdateSpec merges a manual edit into the shared spec.
func (s *Studio) UpdateSpec(p design.Patch) design.Spec {
	return s.store.Apply(p)
}

func (s *Studio) SelectProduct(id string) (catalog.Product, error) {
	p, ok := s.catalog.Lookup(id)
	if !ok {
		return catalog.Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = p
	return p, nil
}

func (s *Studio) SelectedProduct() catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// AddItems creates one idle asset per non-empty upload. An empty productID
// targets the selected product. A pending remix template is consumed.
func (s *Studio) AddItems(uploads []Upload, productID string) []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	product := s.selected
	if productID != "" {
		product = s.catalog.Resolve(productID)
	}

	var tmpl []byte
	if s.template != nil {
		tmpl = s.template.data
	}

	added := make([]Asset, 0, len(uploads))
	for _, u := range uploads {
		if len(u.Data) == 0 {
			continue
		}
		a := &Asset{
			ID:          s.uniqueIDLocked(),
			Source:      append([]byte(nil), u.Data...),
			MimeType:    u.MimeType,
			Status:      StatusIdle,
			ProductID:   product.ID,
			ProductName: product.Name,
			Remixing:    tmpl != nil,
			Note:        u.Note,
			template:    tmpl,
		}
		s.assets = append(s.assets, a)
		added = append(added, a.clone())
	}
	s.template = nil

	s.appendLogLocked(fmt.Sprintf("VAULT: ADDED_%d_PAYLOADS", len(added)))
	return added
}

func (s *Studio) uniqueIDLocked() string {
	for {
		id := newAssetID()
		if s.findLocked(id) == nil {
			return id
		}
	}
}

func (s *Studio) Assets() []Asset {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a.clone())
	}
	return out
}

func (s *Studio) Asset(id string) (Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		return Asset{}, ErrNotFound
	}
	return a.clone(), nil
}

// Remove deletes an asset and ends any refine session that targeted it.
func (s *Studio) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	s.assets = append(s.assets[:idx], s.assets[idx+1:]...)
	if r, ok := s.mode.(Refining); ok && r.AssetID == id {
		s.mode = Negotiating{}
	}
	s.appendLogLocked("VAULT: PURGED_" + id)
	return nil
}

// Clear drops every asset, the activity log and the refine session. A
// pending remix template survives.
func (s *Studio) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.assets = nil
	s.log = nil
	s.mode = Negotiating{}
	s.appendLogLocked("VAULT: SYSTEM_FLUSH")
}

// Remix locks a completed asset's result as the template for the next AddItems.
func (s *Studio) Remix(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		return ErrNotFound
	}
	if a.Status != StatusCompleted || !a.HasResult() {
		return ErrNotRemixable
	}
	s.template = &remixTemplate{assetID: id, data: append([]byte(nil), a.Result...)}
	s.appendLogLocked("VAULT: TEMPLATE_LOCK_" + id)
	return nil
}

// RemixTemplate reports the asset whose result is locked as a template.
func (s *Studio) RemixTemplate() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.template == nil {
		return "", false
	}
	return s.template.assetID, true
}

// Refine routes further chat input to the edit controller for id.
func (s *Studio) Refine(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findLocked(id)
	if a == nil {
		return ErrNotFound
	}
	if !a.HasResult() {
		return ErrNoResult
	}

	s.mode = Refining{AssetID: id}
	s.appendMessagesLocked(Message{Role: RoleAssistant, Content: workbenchGreeting(a.ProductName, id)})
	s.appendLogLocked("AGENT: REFINE_MODE_ACTIVE_" + id)
	return nil
}

func (s *Studio) ExitRefine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = Negotiating{}
}

func (s *Studio) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Studio) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.history...)
}

// Log returns the activity log, newest first.
func (s *Studio) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func (s *Studio) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.assets)}
	for _, a := range s.assets {
		switch a.Status {
		case StatusCompleted:
			st.Completed++
		case StatusProcessing:
			st.Processing++
		case StatusIdle:
			st.Idle++
		case StatusError:
			st.Failed++
		}
	}
	return st
}

func (s *Studio) findLocked(id string) *Asset {
	if idx := s.indexLocked(id); idx >= 0 {
		return s.assets[idx]
	}
	return nil
}

func (s *Studio) indexLocked(id string) int {
	for i, a := range s.assets {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (s *Studio) appendLogLocked(entry string) {
	s.log = append([]string{entry}, s.log...)
	if len(s.log) > maxLogEntries {
		s.log = s.log[:maxLogEntries]
	}
	s.logger.Info("studio activity", "event", entry)
}

func (s *Studio) appendMessagesLocked(msgs ...Message) {
	for i := range msgs {
		if msgs[i].Time.IsZero() {
			msgs[i].Time = s.now()
		}
	}
	s.history = append(s.history, msgs...)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

func workbenchGreeting(productName, id string) string {
	if productName == "" {
		productName = "asset"
	}
	return fmt.Sprintf("AGENT: %s (%s) is on the workbench. I'm ready for your edit instructions.\n\n"+
		"Examples:\n"+
		"• \"Make it darker\" - darker colors and overlay\n"+
		"• \"Move text to top\" - reposition branding\n"+
		"• \"Bigger text\" - increase font size\n"+
		"• \"Remove date\" - hide date display\n"+
		"• \"More vibrant colors\" - brighter palette\n"+
		"• \"Change font to Montserrat\" - update typography\n\n"+
		"What would you like to change?", productName, id)
}
