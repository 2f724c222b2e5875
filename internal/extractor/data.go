package extractor

// DeletedFileCaption marks an opening post whose attachment was removed.
const DeletedFileCaption = "(file deleted)"

// ParsedThread is the opening post as it appears in the thread markup.
// ImageURL is the raw attachment address (possibly protocol-relative) and
// is nil exactly when ImageCaption is DeletedFileCaption.
type ParsedThread struct {
	Subject      *string
	Text         string
	ImageURL     *string
	ImageExt     string
	ImageCaption string
}

// HasAttachment reports whether the post still carries a retrievable file.
func (p ParsedThread) HasAttachment() bool {
	return p.ImageURL != nil
}
