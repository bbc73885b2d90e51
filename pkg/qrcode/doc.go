// Package qrcode renders provisioning URIs as PNG QR codes so a user can
// enroll an authenticator app by scanning instead of typing the secret.
package qrcode
