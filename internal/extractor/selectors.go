package extractor

// Selectors isolating the board's thread markup. Everything the extractor
// knows about page shape lives here.
const (
	selectorOpContainer = "div.opContainer"
	selectorPostInfo    = "div.postInfo"
	selectorSubject     = "span.subject"
	selectorFile        = "div.file"
	selectorFileText    = "div.fileText"
	selectorFileThumb   = "a.fileThumb"
	selectorPostMessage = "blockquote.postMessage"
)
