// Package roddom implements dom.Document against the live client page over
// the Chrome DevTools protocol.
package roddom

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/historic-flag-overlay/internal/config"
	"github.com/DoyleJ11/historic-flag-overlay/internal/dom"
)

const (
	labelID     = "historic-flag-label"
	bindingName = "__historicFlagMutated"
)

type Document struct {
	page   *rod.Page
	log    *zap.Logger
	cancel context.CancelFunc
}

// Connect attaches to the client's remote debugging endpoint and picks the
// page whose URL contains cfg.PageMatch, or the first page.
func Connect(ctx context.Context, cfg config.Client, log *zap.Logger) (*Document, error) {
	if log == nil {
		log = zap.NewNop()
	}
	controlURL, err := launcher.ResolveURL(cfg.DevToolsURL)
	if err != nil {
		return nil, fmt.Errorf("resolve devtools url %s: %w", cfg.DevToolsURL, err)
	}

	// Browser.Close would shut the client down; ending the context only
	// drops our connection.
	ctx, cancel := context.WithCancel(ctx)
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to client: %w", err)
	}

	pages, err := browser.Pages()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("list pages: %w", err)
	}
	if len(pages) == 0 {
		cancel()
		return nil, fmt.Errorf("client exposes no pages")
	}

	page := pages[0]
	for _, p := range pages {
		info, err := p.Info()
		if err != nil {
			continue
		}
		if strings.Contains(info.URL, cfg.PageMatch) {
			page = p
			break
		}
	}
	log.Info("attached to client page", zap.String("controlURL", controlURL))
	return &Document{page: page, log: log, cancel: cancel}, nil
}

func (d *Document) Find(sel dom.Selector) (dom.Element, error) {
	has, el, err := d.page.Has(sel.CSS())
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, nil
	}
	w, err := wrap(el)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (d *Document) FindAll(sel dom.Selector) ([]dom.Element, error) {
	els, err := d.page.Elements(sel.CSS())
	if err != nil {
		return nil, err
	}
	return wrapAll(els)
}

const observeJS = `(scope, binding) => {
	const key = '__historicFlagObserver';
	if (window[key]) window[key].disconnect();
	const observer = new MutationObserver((mutations) => {
		for (const m of mutations) {
			const node = m.target.nodeType === 1 ? m.target : m.target.parentElement;
			if (node && node.closest(scope)) {
				window[binding]('');
				return;
			}
		}
	});
	observer.observe(document.body, { childList: true, subtree: true });
	window[key] = observer;
	return true;
}`

// Observe installs a MutationObserver in the page that reports structural
// changes under scope. The binding is removed when ctx ends.
func (d *Document) Observe(ctx context.Context, scope dom.Selector, notify func()) error {
	stop, err := d.page.Expose(bindingName, func(gson.JSON) (interface{}, error) {
		notify()
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("expose mutation binding: %w", err)
	}
	if _, err := d.page.Eval(observeJS, scope.CSS(), bindingName); err != nil {
		_ = stop()
		return fmt.Errorf("install mutation observer: %w", err)
	}

	go func() {
		<-ctx.Done()
		if err := stop(); err != nil {
			d.log.Debug("remove mutation binding", zap.Error(err))
		}
	}()
	return nil
}

const showLabelJS = `(id, text) => {
	let label = document.getElementById(id);
	if (!label) {
		label = document.createElement('div');
		label.id = id;
		label.className = id;
		label.style.cssText = 'position: fixed; top: 12px; left: 50%; transform: translateX(-50%); z-index: 9999; padding: 4px 12px; background: rgba(1, 10, 19, 0.85); color: #f0e6d2; border: 1px solid #c8aa6e; font-size: 12px; cursor: pointer;';
		label.addEventListener('click', () => label.remove());
		document.body.appendChild(label);
	}
	label.textContent = text;
	return true;
}`

const removeLabelJS = `(id) => {
	const label = document.getElementById(id);
	if (label) label.remove();
	return true;
}`

func (d *Document) ShowLabel(text string) error {
	_, err := d.page.Eval(showLabelJS, labelID, text)
	return err
}

func (d *Document) RemoveLabel() error {
	_, err := d.page.Eval(removeLabelJS, labelID)
	return err
}

// Close detaches from the client and leaves the page running.
func (d *Document) Close() error {
	d.cancel()
	return nil
}
