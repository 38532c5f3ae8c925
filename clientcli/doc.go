// Package clientcli provides a client library for the filedock HTTP API.
//
// Uploads follow the server's two-step flow: request a presigned URL, PUT
// the bytes straight to the object store, then confirm. Downloads fetch a
// presigned URL and stream from the store. Folders, listings, file info and
// statistics go through the JSON API.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:5708"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath: "./report.pdf",
//		Tags:      []string{"finance"},
//	})
//
// # Profile Configuration
//
// Profiles in ~/.filedock/config.yaml name server endpoints:
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	profile, err := configFile.GetProfile("production")
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
