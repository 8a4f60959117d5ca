package trigger

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/poiesic/pdfingest/core"
)

const (
	// FinalizedEventType is the CloudEvent type emitted when an object is created
	// or overwritten.
	FinalizedEventType = "google.cloud.storage.object.v1.finalized"

	// finalizeNotification is the Pub/Sub eventType attribute for the same event.
	finalizeNotification = "OBJECT_FINALIZE"

	storageEventPrefix = "google.cloud.storage.object.v1."

	// MaxBodySize bounds the notification bodies accepted by FromHTTPRequest.
	MaxBodySize = 1 << 20
)

// objectData is the subset of a Cloud Storage object resource we need.
type objectData struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// pushEnvelope is a Pub/Sub push subscription delivery.
type pushEnvelope struct {
	Message *struct {
		Attributes map[string]string `json:"attributes"`
		Data       string            `json:"data"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// IsCloudEvent reports whether r carries a CloudEvent, either as ce-*
// headers or as an application/cloudevents+json body.
func IsCloudEvent(r *http.Request) bool {
	if r.Header.Get("Ce-Specversion") != "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "application/cloudevents")
}

// FromHTTPRequest decodes a notification delivered over HTTP in any of the
// supported shapes.
func FromHTTPRequest(r *http.Request) (core.Request, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxBodySize)

	if IsCloudEvent(r) {
		evt, err := cehttp.NewEventFromHTTPRequest(r)
		if err != nil {
			return core.Request{}, fmt.Errorf("%w: %w", core.ErrMalformedTrigger, err)
		}
		return FromCloudEvent(*evt)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Request{}, fmt.Errorf("%w: %w", core.ErrMalformedTrigger, ErrBodyTooLarge)
		}
		return core.Request{}, fmt.Errorf("%w: read body: %w", core.ErrMalformedTrigger, err)
	}
	return FromJSON(body)
}

// FromJSON decodes either a plain {"bucket","name"} payload or a Pub/Sub
// push envelope around a Cloud Storage notification.
func FromJSON(body []byte) (core.Request, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return core.Request{}, fmt.Errorf("%w: %w", core.ErrMalformedTrigger, err)
	}

	if _, ok := probe["message"]; ok {
		var env pushEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			return core.Request{}, fmt.Errorf("%w: %w", core.ErrMalformedTrigger, err)
		}
		return fromEnvelope(env)
	}

	var obj objectData
	if err := json.Unmarshal(body, &obj); err != nil {
		return core.Request{}, fmt.Errorf("%w: %w", core.ErrMalformedTrigger, err)
	}
	return toRequest(obj)
}

func fromEnvelope(env pushEnvelope) (core.Request, error) {
	if env.Message == nil {
		return core.Request{}, fmt.Errorf("%w: empty push message", core.ErrMalformedTrigger)
	}
	attrs := env.Message.Attributes
	if kind := attrs["eventType"]; kind != "" && kind != finalizeNotification {
		return core.Request{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, kind)
	}
	if attrs["bucketId"] != "" && attrs["objectId"] != "" {
		return toRequest(objectData{Bucket: attrs["bucketId"], Name: attrs["objectId"]})
	}

	if env.Message.Data == "" {
		return core.Request{}, fmt.Errorf("%w: push message has no object reference", core.ErrMalformedTrigger)
	}
	raw, err := base64.StdEncoding.DecodeString(env.Message.Data)
	if err != nil {
		return core.Request{}, fmt.Errorf("%w: message data: %w", core.ErrMalformedTrigger, err)
	}
	var obj objectData
	if err := json.Unmarshal(raw, &obj); err != nil {
		return core.Request{}, fmt.Errorf("%w: message data: %w", core.ErrMalformedTrigger, err)
	}
	return toRequest(obj)
}

// FromCloudEvent decodes a storage CloudEvent. Storage events other than
// object finalization return ErrUnsupportedEvent. Events from other sources
// are accepted as long as their data names a bucket and an object.
func FromCloudEvent(evt event.Event) (core.Request, error) {
	kind := evt.Type()
	if strings.HasPrefix(kind, storageEventPrefix) && kind != FinalizedEventType {
		return core.Request{}, fmt.Errorf("%w: %s", ErrUnsupportedEvent, kind)
	}

	var obj objectData
	if err := evt.DataAs(&obj); err != nil {
		return core.Request{}, fmt.Errorf("%w: event %s: %w", core.ErrMalformedTrigger, evt.ID(), err)
	}
	return toRequest(obj)
}

func toRequest(obj objectData) (core.Request, error) {
	req := core.Request{Bucket: obj.Bucket, Name: obj.Name}
	if err := core.ValidateRequest(req); err != nil {
		return core.Request{}, err
	}
	return req, nil
}
