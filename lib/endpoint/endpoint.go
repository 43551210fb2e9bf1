// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package endpoint parses and compares service addresses of the form
// protocol://host:port/app, for example wss://127.0.0.1:7700/auth.
//
// Endpoints are both dialable addresses and directory keys. Two
// endpoints are equal when their canonical strings match ignoring case.
package endpoint

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint names one service listener. On the wire it travels as a
// dictionary {Protocol, Address, Port, AppName}.
type Endpoint struct {
	Protocol string
	Host     string `wire:"Address"`
	Port     int
	App      string `wire:"AppName"`
}

// Parse reads protocol://host:port/app. The port is required; the app
// may be empty.
func Parse(s string) (Endpoint, error) {
	parsed, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: %w", s, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: want protocol://host:port/app", s)
	}
	host, portText, err := net.SplitHostPort(parsed.Host)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: %w", s, err)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return Endpoint{}, fmt.Errorf("parsing endpoint %q: invalid port %q", s, portText)
	}
	return Endpoint{
		Protocol: parsed.Scheme,
		Host:     host,
		Port:     port,
		App:      strings.Trim(parsed.Path, "/"),
	}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Endpoint {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the canonical protocol://host:port/app form.
func (e Endpoint) String() string {
	return e.Protocol + "://" + net.JoinHostPort(e.Host, strconv.Itoa(e.Port)) + "/" + e.App
}

// Key returns the case-folded canonical form, for use as a map key.
func (e Endpoint) Key() string {
	return strings.ToLower(e.String())
}

// Equal compares canonical forms ignoring case.
func (e Endpoint) Equal(o Endpoint) bool {
	return strings.EqualFold(e.String(), o.String())
}

// IsZero reports whether e is the zero Endpoint.
func (e Endpoint) IsZero() bool {
	return e == Endpoint{}
}

// URL returns the websocket URL to dial. A ws or wss protocol is used as
// is; anything else dials plain ws.
func (e Endpoint) URL() string {
	scheme := strings.ToLower(e.Protocol)
	if scheme != "ws" && scheme != "wss" {
		scheme = "ws"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(e.Host, strconv.Itoa(e.Port)),
		Path:   "/" + e.App,
	}).String()
}

// MarshalText implements encoding.TextMarshaler so endpoints read
// naturally from config files.
func (e Endpoint) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *Endpoint) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
