// Package aws provides some higher level Amazon Web Services abstractions for access to common resources.
// The exported Adapter can be used to discover F5 instances by image, manage their EC2 tags, look up
// Auto Scaling Groups and read device credentials from Secrets Manager.
package aws
