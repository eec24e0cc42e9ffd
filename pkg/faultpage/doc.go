// Package faultpage renders the HTML pages shown to browsers when a request
// fails.
//
// Two templ components are provided. ProductionPage shows only the status
// and a generic public message. DebugPage adds everything needed to diagnose
// the failure: the error message and type, the cause chain, the stack, a
// source snippet around the failing frame, the request and server details.
//
// The components live in pages.templ; run templ generate after editing it to
// refresh pages_templ.go.
//
// Messages are passed through a strict bluemonday policy before rendering so
// error text never carries markup into the page.
//
// Usage:
//
//	page := faultpage.ProductionPage(faultpage.Page{
//	    Status:  http.StatusNotFound,
//	    Message: faultpage.PublicMessage(http.StatusNotFound),
//	})
//	_ = page.Render(ctx, w)
package faultpage
