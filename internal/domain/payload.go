package domain

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindAudio    Kind = "audio"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
	KindLocation Kind = "location"
	KindContact  Kind = "contact"
	KindSticker  Kind = "sticker"
)

// Supported reports whether k is one of the known payload kinds.
func (k Kind) Supported() bool {
	switch k {
	case KindText, KindImage, KindAudio, KindVideo, KindDocument, KindLocation, KindContact, KindSticker:
		return true
	}
	return false
}

// Payload is the variant content of a message. Each implementation belongs to exactly one Kind.
type Payload interface {
	Kind() Kind
}

// Asset identifies a media object held by the provider.
type Asset struct {
	AssetID     string `json:"assetId"`
	MimeType    string `json:"mimeType"`
	ContentHash string `json:"contentHash"`
}

type Text struct {
	Body string `json:"body"`
}

type Image struct {
	Asset
	Caption string `json:"caption,omitempty"`
}

type Audio struct {
	Asset
	Voice bool `json:"voice,omitempty"`
}

type Video struct {
	Asset
	Caption string `json:"caption,omitempty"`
}

type Document struct {
	Asset
	Filename string `json:"filename,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type Sticker struct {
	Asset
}

type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name,omitempty"`
	Address string  `json:"address,omitempty"`
}

type ContactName struct {
	Formatted string `json:"formatted"`
	First     string `json:"first,omitempty"`
	Last      string `json:"last,omitempty"`
}

type ContactPhone struct {
	Phone string `json:"phone"`
	Type  string `json:"type,omitempty"`
}

type ContactEmail struct {
	Email string `json:"email"`
	Type  string `json:"type,omitempty"`
}

type Contact struct {
	Name   ContactName    `json:"name"`
	Phones []ContactPhone `json:"phones,omitempty"`
	Emails []ContactEmail `json:"emails,omitempty"`
}

func (Text) Kind() Kind     { return KindText }
func (Image) Kind() Kind    { return KindImage }
func (Audio) Kind() Kind    { return KindAudio }
func (Video) Kind() Kind    { return KindVideo }
func (Document) Kind() Kind { return KindDocument }
func (Sticker) Kind() Kind  { return KindSticker }
func (Location) Kind() Kind { return KindLocation }
func (Contact) Kind() Kind  { return KindContact }

// DecodePayload unmarshals stored payload JSON into the variant selected by kind.
// Unsupported kinds and empty data decode to a nil payload.
func DecodePayload(kind Kind, data []byte) (Payload, error) {
	if len(data) == 0 || string(data) == "null" || !kind.Supported() {
		return nil, nil
	}

	var (
		payload Payload
		err     error
	)
	switch kind {
	case KindText:
		payload, err = decodeAs[Text](data)
	case KindImage:
		payload, err = decodeAs[Image](data)
	case KindAudio:
		payload, err = decodeAs[Audio](data)
	case KindVideo:
		payload, err = decodeAs[Video](data)
	case KindDocument:
		payload, err = decodeAs[Document](data)
	case KindSticker:
		payload, err = decodeAs[Sticker](data)
	case KindLocation:
		payload, err = decodeAs[Location](data)
	case KindContact:
		payload, err = decodeAs[Contact](data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", kind, err)
	}
	return payload, nil
}

func decodeAs[T Payload](data []byte) (Payload, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
