/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package vsphere implements the vCenter backend: session bootstrap, the
// per-run inventory index, state observation and task submission.
package vsphere

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"

	"github.com/go-logr/logr"
	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/find"
	"github.com/vmware/govmomi/session"
	"github.com/vmware/govmomi/vim25"
	"github.com/vmware/govmomi/vim25/soap"

	"github.com/veldt-io/vsteer/internal/config"
	"github.com/veldt-io/vsteer/internal/faults"
)

// Session is an authenticated connection to one vCenter server. It is not
// safe for concurrent use; each invocation runs strictly sequentially.
type Session struct {
	client *govmomi.Client
	finder *find.Finder

	cfg config.VCenterConfig
	log logr.Logger

	// inventory is the per-run name index, rebuilt by Refresh
	inventory *Inventory
}

// Connect establishes and authenticates a session. A failed handshake is a
// ConnectionError and no operation is attempted afterwards.
func Connect(ctx context.Context, cfg config.VCenterConfig, log logr.Logger) (*Session, error) {
	s := &Session{cfg: cfg, log: log}

	if err := s.connect(ctx); err != nil {
		return nil, &faults.ConnectionError{Server: cfg.Host, User: cfg.Username, Cause: err}
	}

	return s, nil
}

func (s *Session) connect(ctx context.Context) error {
	u, err := url.Parse(s.cfg.URL())
	if err != nil {
		return fmt.Errorf("invalid vCenter endpoint URL: %w", err)
	}
	u.User = url.UserPassword(s.cfg.Username, s.cfg.Password)

	soapClient := soap.NewClient(u, s.cfg.Insecure)
	if !s.cfg.Insecure {
		soapClient.DefaultTransport().TLSClientConfig = &tls.Config{
			ServerName: u.Hostname(),
		}
	}

	vimClient, err := vim25.NewClient(ctx, soapClient)
	if err != nil {
		return fmt.Errorf("failed to create VIM client: %w", err)
	}

	s.client = &govmomi.Client{
		Client:         vimClient,
		SessionManager: session.NewManager(vimClient),
	}

	if err := s.client.Login(ctx, u.User); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	s.finder = find.NewFinder(s.client.Client, true)

	return s.setupDatacenter(ctx)
}

// setupDatacenter pins the finder to the configured datacenter, or the
// first one found.
func (s *Session) setupDatacenter(ctx context.Context) error {
	if s.cfg.Datacenter != "" {
		dc, err := s.finder.Datacenter(ctx, s.cfg.Datacenter)
		if err != nil {
			return faults.NewNotFound("datacenter", s.cfg.Datacenter, s.cfg.Host)
		}
		s.finder.SetDatacenter(dc)
		return nil
	}

	datacenters, err := s.finder.DatacenterList(ctx, "*")
	if err != nil || len(datacenters) == 0 {
		return fmt.Errorf("no datacenters found on %s", s.cfg.Host)
	}
	s.finder.SetDatacenter(datacenters[0])
	return nil
}

// ensureConnection revalidates the session, reconnecting if it expired.
// One-shot invocations never hit the reconnect path; watch mode can.
func (s *Session) ensureConnection(ctx context.Context) error {
	if s.client == nil {
		return s.connect(ctx)
	}
	if !s.client.Valid() {
		s.log.V(1).Info("vCenter session expired, reconnecting")
		return s.connect(ctx)
	}
	return nil
}

// Server returns the vCenter host the session is bound to.
func (s *Session) Server() string {
	return s.cfg.Host
}

// Ping verifies the session is still usable. Used as a health check.
func (s *Session) Ping(ctx context.Context) error {
	return s.ensureConnection(ctx)
}

// Logout ends the session.
func (s *Session) Logout(ctx context.Context) error {
	if s.client != nil {
		return s.client.Logout(ctx)
	}
	return nil
}
