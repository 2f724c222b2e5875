package extractor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rohmanhakim/chan-relay/internal/metadata"
	"github.com/rohmanhakim/chan-relay/pkg/failure"
	"github.com/rohmanhakim/chan-relay/pkg/urlutil"
	"golang.org/x/net/html"
)

/*
Responsibilities
- Parse thread markup into a DOM tree
- Locate the opening post, its subject, attachment and message body
- Flatten the message body into plain text

Shape Rules
- A page without an opening post or its metadata block is malformed
- A post without a complete attachment block is a normal "file deleted" post
- An empty subject is the same as no subject

The extractor never performs I/O; it only maps markup to records.
*/

type ThreadExtractor struct {
	metadataSink metadata.MetadataSink
}

func NewThreadExtractor(
	metadataSink metadata.MetadataSink,
) ThreadExtractor {
	return ThreadExtractor{
		metadataSink: metadataSink,
	}
}

// ParseCatalog extracts the catalog's thread ids. It never fails: a page
// without embedded thread state yields an empty list.
func (e *ThreadExtractor) ParseCatalog(markup []byte) []int64 {
	return ParseCatalog(markup)
}

func (e *ThreadExtractor) ParseThread(
	sourceUrl string,
	markup []byte,
) (ParsedThread, failure.ClassifiedError) {
	parsed, err := parseThread(markup)
	if err != nil {
		e.metadataSink.RecordError(
			time.Now(),
			"extractor",
			"ThreadExtractor.ParseThread",
			mapExtractionErrorToMetadataCause(err),
			err.Error(),
			[]metadata.Attribute{
				metadata.NewAttr(metadata.AttrURL, sourceUrl),
				metadata.NewAttr(metadata.AttrMessage, err.Message),
			},
		)
		return ParsedThread{}, err
	}
	return parsed, nil
}

func parseThread(markup []byte) (ParsedThread, *ExtractionError) {
	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return ParsedThread{}, &ExtractionError{
			Message:   fmt.Sprintf("failed to parse HTML: %v", err),
			Retryable: false,
			Cause:     ErrCauseNotHTML,
		}
	}
	gqDoc := goquery.NewDocumentFromNode(doc)

	op := gqDoc.Find(selectorOpContainer).First()
	if op.Length() == 0 {
		return ParsedThread{}, &ExtractionError{
			Message:   fmt.Sprintf("no %s in page", selectorOpContainer),
			Retryable: false,
			Cause:     ErrCauseMissingOpPost,
		}
	}

	info := op.Find(selectorPostInfo).First()
	if info.Length() == 0 {
		return ParsedThread{}, &ExtractionError{
			Message:   fmt.Sprintf("no %s in opening post", selectorPostInfo),
			Retryable: false,
			Cause:     ErrCauseMissingPostInfo,
		}
	}

	parsed := ParsedThread{
		Subject: extractSubject(info),
		Text:    extractMessage(op),
	}
	parsed.ImageURL, parsed.ImageCaption = extractAttachment(op)
	if parsed.ImageURL != nil {
		parsed.ImageExt = urlutil.Extension(*parsed.ImageURL)
	}
	return parsed, nil
}

func extractSubject(info *goquery.Selection) *string {
	subject := info.Find(selectorSubject).First()
	if subject.Length() == 0 {
		return nil
	}
	text := strings.TrimSpace(subject.Text())
	if text == "" {
		return nil
	}
	return &text
}

// extractAttachment returns the attachment address and caption. Any missing
// piece of the file block means the file was deleted.
func extractAttachment(op *goquery.Selection) (*string, string) {
	file := op.Find(selectorFile).First()
	if file.Length() == 0 {
		return nil, DeletedFileCaption
	}

	fileText := file.Find(selectorFileText).First()
	if fileText.Length() == 0 {
		return nil, DeletedFileCaption
	}
	caption := collapseSpaces(textRuns(fileText.Nodes[0]))

	href, ok := file.Find(selectorFileThumb).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return nil, DeletedFileCaption
	}
	return &href, caption
}

func extractMessage(op *goquery.Selection) string {
	message := op.Find(selectorPostMessage).First()
	if message.Length() == 0 {
		return ""
	}
	return nodeToText(message.Nodes[0])
}
