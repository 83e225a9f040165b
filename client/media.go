package client

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	// decoders Thumbnail accepts, registered with the image package.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"

	"github.com/carlmjohnson/requests"
	"github.com/go-json-experiment/json"
	"github.com/nfnt/resize"

	"github.com/foyerspace/foyer/activity"
)

// thumbSize bounds both dimensions of a generated icon.
const thumbSize = 256

// Upload is a binary payload for PostMedia.
type Upload struct {
	Name string
	Type string
	Data []byte
}

// PostMedia posts act plus its binary payload to the actor's media upload
// endpoint and returns the location of the created resource. The optional
// icon is a small preview stored alongside the file.
func (c *Client) PostMedia(ctx context.Context, act *activity.Object, file Upload, icon *Upload) (string, error) {
	endpoint := c.actor.UploadMediaURL()
	if endpoint == "" {
		return "", &CapabilityError{Capability: "upload media"}
	}
	if !c.perimeter.Trusted(endpoint) {
		return "", fmt.Errorf("%w: upload endpoint %s", ErrInvalidTarget, endpoint)
	}
	if err := c.stamp(act); err != nil {
		return "", err
	}
	// servers reject uploads whose binary does not match the declared type,
	// so catch the mismatch before paying for the round trip.
	if strings.HasPrefix(file.Type, "image/") {
		if sniffed := http.DetectContentType(file.Data); sniffed != file.Type {
			return "", fmt.Errorf("upload %q declared %s but looks like %s", file.Name, file.Type, sniffed)
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	obj, err := json.Marshal(act)
	if err != nil {
		return "", err
	}
	if err := mw.WriteField("object", string(obj)); err != nil {
		return "", err
	}
	if err := writeFilePart(mw, "file", file); err != nil {
		return "", err
	}
	if icon != nil {
		if err := writeFilePart(mw, "icon", *icon); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	var location string
	err = requests.URL(endpoint).
		ContentType(mw.FormDataContentType()).
		BodyBytes(body.Bytes()).
		Transport(c).
		AddValidator(remoteCheck(endpoint)).
		Handle(captureLocation(&location)).
		Fetch(ctx)
	if err != nil {
		return "", err
	}
	c.log.Debug("posted media", "type", act.Type, "file", file.Name, "location", location)
	return location, nil
}

func writeFilePart(mw *multipart.Writer, field string, up Upload) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, up.Name))
	if up.Type != "" {
		h.Set("Content-Type", up.Type)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(up.Data)
	return err
}

// Thumbnail decodes an image and downscales it into a small png suitable as
// the icon part of a media upload.
func Thumbnail(data []byte) (Upload, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Upload{}, fmt.Errorf("decode thumbnail source: %w", err)
	}
	small := resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, small); err != nil {
		return Upload{}, err
	}
	return Upload{Name: "icon.png", Type: "image/png", Data: buf.Bytes()}, nil
}
