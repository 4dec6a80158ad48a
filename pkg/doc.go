// Package pkg holds the depotview libraries.
//
// # Overview
//
// depotview shows the stock of a warehouse as a field of boxes on a floor
// grid. Every storage location becomes one box: its height follows the
// stock, its color the location weight. The pkg directory is organized
// into three areas:
//
//  1. Engine: [mapper], [scene], [camera], [picking], [interact], [loop]
//     and [viewer] turn records into an interactive view.
//  2. Data: [provider] and its file, httpapi and mongostore backends fetch
//     records; [cache] keeps their responses.
//  3. Surfaces: [sink] exports scenes, [server] serves them to browsers.
//
// # Data Flow
//
//	Provider (file, warehouse API, MongoDB)
//	         ↓
//	    [provider.Refresher] (fetch, last response wins)
//	         ↓
//	    [scene.Build] (records → boxes + corridor labels)
//	         ↓
//	    [scene.Store] (versioned swap)
//	         ↓
//	    [viewer.Viewer] driven by [loop.Loop] → Renderer + Overlay
//
// # Quick Start
//
//	p, _ := file.New("layouts/")
//	store := scene.NewStore(scene.DefaultGrid)
//	r, _ := provider.NewRefresher(p, store, "7")
//	if _, err := r.Refresh(ctx); err != nil {
//	    // the store now holds an empty scene
//	}
//
//	v, _ := viewer.New(viewer.Size{Width: 1280, Height: 720}, store,
//	    viewer.WithOverlay(overlay), viewer.WithRenderer(renderer))
//	ticker, _ := loop.NewTicker(30)
//	l := loop.New(ticker, v.Frame)
//	go l.Run(ctx)
//
//	l.Post(func() { _ = v.PointerMove(ctx, 640, 360) })
//
// # Supporting Packages
//
// [config] loads the TOML configuration, [errors] carries error codes,
// [httputil] retries outgoing requests, [session] tracks browser
// connections and [observability] exposes hooks with a Prometheus
// implementation in observability/metrics.
package pkg
