// Package security builds client TLS settings for outbound connections.
//
//	cfg := security.TLSConfig{
//	    CAFile:     "/etc/reqflow/ca.pem",
//	    CertFile:   "/etc/reqflow/client.pem",
//	    KeyFile:    "/etc/reqflow/client-key.pem",
//	    MinVersion: "1.3",
//	}
//	tlsConfig, err := cfg.Build()
package security
