package model

// PageData describes the recognized content of a single scanned page.
// All fields are plain values so the record survives a trip through the
// conflict channel unchanged.
type PageData struct {
	DocumentID int
	Page       int
	Picture    string
	Checkboxes []Checkbox
}

// Checkbox is one recognized answer mark with its detection confidence.
type Checkbox struct {
	Question int
	Answer   int
	Checked  bool
	Score    float64
}

// Correction is an operator override of a single checkbox.
type Correction struct {
	Question int
	Answer   int
	Checked  bool
}
