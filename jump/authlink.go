// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jump

import (
	"github.com/bureau-foundation/loadbalancer/lib/client"
	"github.com/bureau-foundation/loadbalancer/lib/endpoint"
	"github.com/bureau-foundation/loadbalancer/lib/link"
	"github.com/bureau-foundation/loadbalancer/lib/protocol"
)

// newAuthLink links conn to one Auth endpoint and registers this Jump
// every time the connection comes up. Auth forgets the registration
// when the connection drops, so there is nothing to undo.
func (s *Service) newAuthLink(conn *client.Conn, target endpoint.Endpoint, options link.Options) *link.Link {
	l := link.New(conn, target, options, s.logger)
	conn.OnConnected(func() {
		err := conn.RaiseEventWith(protocol.OnJumpServiceAdded, protocol.AddServiceParams{
			ServiceEndpoint:   s.settings.PublicServiceEndpoint,
			ServiceProperties: s.settings.Properties(),
		})
		if err != nil {
			l.Logger().Warn("registering with auth failed", "error", err)
			return
		}
		l.Logger().Info("registered with auth", "public_endpoint", s.settings.PublicServiceEndpoint.String())
	})
	return l
}
