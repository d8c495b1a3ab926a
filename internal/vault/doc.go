// Package vault reads the gateway signing secret from HashiCorp Vault.
//
// The client authenticates with a static token, AppRole credentials or a
// Kubernetes ServiceAccount token, then reads a single KV entry. Both KV
// version 2 and version 1 mounts are supported. Reads are retried with
// backoff on server and transport errors so the gateway can start while
// Vault is still coming up.
//
//	client, err := vault.New(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	if err := client.Authenticate(ctx); err != nil {
//	    return err
//	}
//	data, err := client.ReadKV(ctx, "secret", "idgate/session")
//
// Secret values and Vault tokens are never logged.
package vault
