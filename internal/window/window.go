// Package window shows rendered documents in a browser-engine window.
//
// The window is a page in the user's default browser, served from a
// loopback HTTP listener. The page is told to reload over Server-Sent
// Events whenever the document is replaced, and reports its own closing
// with a beacon so the viewer can tell a user-closed window apart from a
// killed process.
package window

// Window displays one HTML document at a time.
type Window interface {
	// SetTitle sets the title shown before the first document arrives.
	SetTitle(title string)
	// SetHTML replaces the displayed document.
	SetHTML(doc []byte)
	// Close closes the window. Closing twice is a no-op.
	Close()
}
