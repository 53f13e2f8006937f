package validate

import (
	"encoding/base64"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// blockedHosts are anonymous file drops and IP loggers. Subdomains match too.
var blockedHosts = []string{
	"anonfiles.com",
	"anonfile.com",
	"bayfiles.com",
	"file.io",
	"transfer.sh",
	"gofile.io",
	"mega.nz",
	"mediafire.com",
	"sendspace.com",
	"dropmefiles.com",
	"grabify.link",
	"iplogger.org",
	"iplogger.com",
	"iplogger.ru",
	"2no.co",
	"blasze.tk",
	"yip.su",
}

var blockedExtensions = map[string]struct{}{
	".exe": {}, ".bat": {}, ".cmd": {}, ".com": {}, ".scr": {}, ".msi": {},
	".dll": {}, ".jar": {}, ".apk": {}, ".sh": {}, ".ps1": {}, ".vbs": {},
	".js": {}, ".php": {}, ".hta": {}, ".lnk": {}, ".iso": {},
}

// imageExtensions maps allowed raster extensions to their canonical subtype.
var imageExtensions = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
	".webp": "webp",
}

// imageSubtypes is the data-URI allow-list, keyed by declared subtype.
var imageSubtypes = map[string]string{
	"png":  "png",
	"jpeg": "jpeg",
	"jpg":  "jpeg",
	"gif":  "gif",
	"webp": "webp",
}

// sniffLen is how much base64 is decoded for content sniffing.
const sniffLen = 684

// AvatarURL checks an avatar override. Empty means "no override".
func (v *Validator) AvatarURL(raw string) Result {
	return v.checkURL("Avatar URL", raw, false)
}

// ImageURL checks an image link. Empty means "no image".
func (v *Validator) ImageURL(raw string) Result {
	return v.checkURL("Image URL", raw, true)
}

func (v *Validator) checkURL(subject, raw string, requireImage bool) Result {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return OK
	}
	if hasDataPrefix(raw) {
		return v.DataImage(raw)
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return reject(KindInput, "%s must be a valid URL.", subject)
	}
	if !strings.EqualFold(u.Scheme, "https") {
		return reject(KindInput, "%s must use HTTPS.", subject)
	}
	if u.User != nil {
		return reject(KindPolicy, "%s must not contain credentials.", subject)
	}
	if isBlockedHost(u.Hostname()) {
		return reject(KindPolicy, "%s points to a blocked file host.", subject)
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if _, bad := blockedExtensions[ext]; bad {
		return reject(KindPolicy, "%s points to a disallowed file type (%s).", subject, ext)
	}
	if requireImage {
		if _, ok := imageExtensions[ext]; !ok {
			return reject(KindInput, "%s must point to a .png, .jpg, .jpeg, .gif or .webp image.", subject)
		}
	}
	return OK
}

func isBlockedHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, blocked := range blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func hasDataPrefix(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// DataImage checks a base64 data URI. The size limit is checked before the
// declared type, and the decoded head must sniff as the declared type.
func (v *Validator) DataImage(uri string) Result {
	uri = strings.TrimSpace(uri)
	if !hasDataPrefix(uri) {
		return reject(KindInput, "Embedded image must be a data URI.")
	}

	header, payload, found := strings.Cut(uri[5:], ",")
	mediaType, encoding, _ := strings.Cut(header, ";")
	if !found || !strings.EqualFold(encoding, "base64") {
		return reject(KindInput, "Embedded image must be base64-encoded.")
	}
	if payload == "" {
		return reject(KindInput, "Embedded image data is empty.")
	}

	// Decoded size is estimated from the encoded length, padding included.
	size := (int64(len(payload))*3 + 3) / 4
	if size > v.opts.MaxImageBytes {
		return reject(KindInput, "Embedded image exceeds the maximum size of %s.", formatBytes(v.opts.MaxImageBytes))
	}

	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	subtype, isImage := strings.CutPrefix(mediaType, "image/")
	canonical, allowed := imageSubtypes[subtype]
	if !isImage || !allowed {
		return reject(KindInput, "Embedded image type %q is not allowed.", mediaType)
	}

	head := payload
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	head = head[:len(head)-len(head)%4]
	data, err := base64.StdEncoding.DecodeString(head)
	if err != nil || len(data) == 0 {
		return reject(KindInput, "Embedded image data is not valid base64.")
	}
	if !mimetype.Detect(data).Is("image/" + canonical) {
		return reject(KindPolicy, "Embedded image content does not match its declared type (%s).", mediaType)
	}
	return OK
}

func formatBytes(n int64) string {
	const mib = 1024 * 1024
	if n%mib == 0 {
		return strconv.FormatInt(n/mib, 10) + " MiB"
	}
	return strconv.FormatInt(n, 10) + " bytes"
}

// WebhookURL checks a webhook URL against the configured pattern.
func (v *Validator) WebhookURL(raw string) Result {
	if !v.webhook.MatchString(strings.TrimSpace(raw)) {
		return reject(KindInput, "Invalid webhook URL format. Please check the URL and try again.")
	}
	return OK
}
