// Package config resolves the per-user KindleDrop configuration file.
//
// The file is JSON. It is parsed with the HCL JSON syntax and decoded against
// an hcldec specification, which is where defaults and field-level validation
// live. A missing file resolves to the all-defaults configuration; anything
// that fails to parse or validate is reported as an *Error before any network
// activity happens.
//
// The transport descriptor never carries a password. The password is injected
// at request-build time by the submission package.
package config
