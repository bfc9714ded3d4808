package models

import (
	"net/http"

	"github.com/MBL11/transit-app-sub002/internal/clock"
)

// ResponseVersion is the envelope version served by every endpoint.
const ResponseVersion = 2

// ResponseModel is the envelope wrapping every JSON answer of the API.
type ResponseModel struct {
	Code        int         `json:"code"`
	CurrentTime int64       `json:"currentTime"`
	Data        interface{} `json:"data,omitempty"`
	Text        string      `json:"text"`
	Version     int         `json:"version"`
}

// EntryData carries a single entity and the objects it refers to.
type EntryData struct {
	Entry      interface{} `json:"entry"`
	References References  `json:"references"`
}

// ListData carries a list of entities and the objects they refer to.
type ListData struct {
	LimitExceeded bool        `json:"limitExceeded"`
	List          interface{} `json:"list"`
	References    References  `json:"references"`
}

// FieldErrorsData is the payload of a 400 answer.
type FieldErrorsData struct {
	FieldErrors map[string][]string `json:"fieldErrors"`
}

// References deduplicates the stops and routes mentioned by journeys.
type References struct {
	Routes []RouteReference `json:"routes"`
	Stops  []StopReference  `json:"stops"`
}

func NewEmptyReferences() References {
	return References{
		Routes: []RouteReference{},
		Stops:  []StopReference{},
	}
}

func ResponseCurrentTime(c clock.Clock) int64 {
	return c.NowUnixMilli()
}

func NewOKResponse(data interface{}, c clock.Clock) ResponseModel {
	return NewResponse(http.StatusOK, data, "OK", c)
}

func NewEntryResponse(entry interface{}, references References, c clock.Clock) ResponseModel {
	return NewOKResponse(EntryData{Entry: entry, References: references}, c)
}

func NewListResponse(list interface{}, references References, limitExceeded bool, c clock.Clock) ResponseModel {
	return NewOKResponse(ListData{LimitExceeded: limitExceeded, List: list, References: references}, c)
}

func NewResponse(code int, data interface{}, text string, c clock.Clock) ResponseModel {
	return ResponseModel{
		Code:        code,
		CurrentTime: ResponseCurrentTime(c),
		Data:        data,
		Text:        text,
		Version:     ResponseVersion,
	}
}
