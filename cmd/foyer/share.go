package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/foyerspace/foyer/client"
)

// system mime tables rarely know 3d asset types, and avatars are the
// point of sharing models.
var modelTypes = map[string]string{
	".glb":  "model/gltf-binary",
	".gltf": "model/gltf+json",
	".vrm":  "model/gltf-binary",
}

type ShareCmd struct {
	File    string   `arg:"" type:"existingfile" help:"Picture, clip or model to share."`
	Caption string   `help:"Caption shown with the media."`
	To      []string `help:"Explicit recipient actor identifiers."`
	Public  bool     `help:"Address the public, not just friends."`
}

func (s *ShareCmd) Run(ctx *Context) error {
	sess, err := ctx.session()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(s.File)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(s.File))
	mediaType := modelTypes[ext]
	if mediaType == "" {
		mediaType = mime.TypeByExtension(ext)
	}
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	aud := client.AudienceFriends
	if s.Public {
		aud = client.AudiencePublic
	}
	upload := client.Upload{Name: filepath.Base(s.File), Type: mediaType, Data: data}
	loc, err := sess.SendMedia(ctx, s.Caption, upload, aud, s.To...)
	if err != nil {
		return err
	}
	fmt.Println(loc)
	return nil
}
