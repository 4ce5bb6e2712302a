// Package bigip provides a small client for the iControl REST management API of F5 BIG-IP devices.
//
// Operations
//
// The exported Client provides the limited set of operations needed to:
//  * Open a session, validating the credentials against the device
//  * List the LTM pools configured on the device, including their autoscaleGroupId
//
// Usage
//
// Credentials are never part of the configuration literal. They are obtained per device from a
// CredentialsProvider:
//
//  creds, err := provider.Credentials(ctx, host)
//  if err != nil {
//      return err
//  }
//  client, err := bigip.NewClient(bigip.NewConfig(host, 443, creds), log.StandardLogger())
//  if err != nil {
//      return err
//  }
//  if _, err := client.Open(ctx); err != nil {
//      return err
//  }
//  pools, err := client.Pools(ctx)
package bigip
