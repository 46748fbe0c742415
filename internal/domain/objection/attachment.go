package objection

import "strings"

// Links holds navigation references for an attachment
type Links struct {
	Self     string
	Download string
}

// BuildLinks derives the self and download links from a base URI and attachment id
func BuildLinks(baseURI, attachmentID string) Links {
	self := strings.TrimRight(baseURI, "/") + "/" + attachmentID
	return Links{
		Self:     self,
		Download: self + "/download",
	}
}

// Attachment is a file stored in the blob store and referenced by an objection.
// It is never updated in place.
type Attachment struct {
	ID          string
	Name        string
	Size        int64
	ContentType string
	Links       Links
}

// NewAttachment builds an attachment for a blob the store has just accepted
func NewAttachment(id, name string, size int64, contentType, linkBaseURI string) (Attachment, error) {
	if strings.TrimSpace(id) == "" {
		return Attachment{}, NewValidationError("id", "attachment id cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return Attachment{}, NewValidationError("name", "attachment name cannot be empty")
	}
	if size < 0 {
		return Attachment{}, NewValidationError("size", "attachment size cannot be negative")
	}
	return Attachment{
		ID:          id,
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Links:       BuildLinks(linkBaseURI, id),
	}, nil
}
