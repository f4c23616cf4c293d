// Package security holds the TLS settings used by the HTTP transport.
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/etc/restkit/ca.pem",
//	    CertFile: "/etc/restkit/client.pem",
//	    KeyFile:  "/etc/restkit/client-key.pem",
//	}
//	tlsConfig, err := cfg.Build()
package security
