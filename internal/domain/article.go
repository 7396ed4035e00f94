package domain

import "time"

// Article is a news item scraped by a channel.
type Article struct {
	URL         string
	Title       string
	Body        string
	PublishedAt time.Time
	Channel     string
	RefDates    []DateReference
}

// DateReference is one date mentioned inside an article body.
// Sentence is empty when no sentence boundary contained the match.
type DateReference struct {
	Date          PartialDate `json:"date"`
	ExtractedText string      `json:"extracted_text"`
	Sentence      string      `json:"sentence,omitempty"`
}

// HasPublicationDate reports whether the source provided a publication date.
func (a Article) HasPublicationDate() bool {
	return !a.PublishedAt.IsZero()
}

// MergeArticles overlays the non-empty fields of incoming on top of existing.
// Fields the incoming article leaves empty keep their stored value.
func MergeArticles(existing, incoming Article) Article {
	merged := existing
	if incoming.URL != "" {
		merged.URL = incoming.URL
	}
	if incoming.Title != "" {
		merged.Title = incoming.Title
	}
	if incoming.Body != "" {
		merged.Body = incoming.Body
	}
	if !incoming.PublishedAt.IsZero() {
		merged.PublishedAt = incoming.PublishedAt
	}
	if incoming.Channel != "" {
		merged.Channel = incoming.Channel
	}
	if incoming.RefDates != nil {
		merged.RefDates = incoming.RefDates
	}
	return merged
}
