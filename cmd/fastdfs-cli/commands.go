package main

import (
	"flag"
	"fmt"
	"os"
	"sync"

	"github.com/fastdfs-go/fastdfs/pkg/fastdfs"
	"github.com/fastdfs-go/fastdfs/pkg/wire"
)

func cmdUpload(client *fastdfs.Client, args []string, quiet, jsonOutput bool) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	ext := fs.String("ext", "", "File extension (defaults to the source file's own extension)")
	group := fs.String("group", "", "Target group (empty lets the tracker choose)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("upload requires exactly one file path")
	}
	path := fs.Arg(0)
	// Flags may also follow the file path, as the usage text shows them.
	fs.Parse(fs.Args()[1:])

	if fs.NArg() != 0 {
		return fmt.Errorf("upload requires exactly one file path")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	extension := *ext
	if extension == "" {
		extension = wire.ExtractExtension(path)
	}

	fileID, err := client.Upload(data, fastdfs.UploadOptions{Extension: extension, Group: *group})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	if jsonOutput {
		printJSONSuccess(uploadResult{FileID: fileID, FileSize: len(data), Extension: extension})
	} else if quiet {
		fmt.Println(fileID)
	} else {
		fmt.Printf("Uploaded %s (%d bytes) as %s\n", path, len(data), fileID)
	}
	return nil
}

func cmdDownload(client *fastdfs.Client, args []string, quiet, jsonOutput bool) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	output := fs.String("output", "", "Output file path (required)")
	offset := fs.Uint64("offset", 0, "Byte offset to start from")
	length := fs.Uint64("length", 0, "Number of bytes to read (0 means to end of file)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("download requires exactly one file id")
	}
	fileID := fs.Arg(0)
	// Flags may also follow the file id, as the usage text shows them.
	fs.Parse(fs.Args()[1:])

	if fs.NArg() != 0 {
		return fmt.Errorf("download requires exactly one file id")
	}
	if *output == "" {
		return fmt.Errorf("-output is required")
	}

	data, err := client.Download(fileID, fastdfs.DownloadOptions{Offset: *offset, Length: *length})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.WriteFile(*output, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *output, err)
	}

	if jsonOutput {
		printJSONSuccess(map[string]interface{}{"output_path": *output, "file_size": len(data)})
	} else if quiet {
		fmt.Println(*output)
	} else {
		fmt.Printf("Downloaded %s (%d bytes) to %s\n", fileID, len(data), *output)
	}
	return nil
}

func cmdDelete(client *fastdfs.Client, args []string, quiet, jsonOutput bool) error {
	if len(args) != 1 {
		return fmt.Errorf("delete requires exactly one file id")
	}
	fileID := args[0]

	if err := client.Delete(fileID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if jsonOutput {
		printJSONSuccess(map[string]interface{}{"file_id": fileID, "deleted": true})
	} else if !quiet {
		fmt.Printf("Deleted %s\n", fileID)
	}
	return nil
}

func cmdStat(client *fastdfs.Client, args []string, quiet, jsonOutput bool) error {
	if len(args) != 1 {
		return fmt.Errorf("stat requires exactly one file id")
	}
	fileID := args[0]

	info, err := client.GetFileInfo(fileID)
	if err != nil {
		return fmt.Errorf("stat failed: %w", err)
	}

	if jsonOutput {
		printJSONSuccess(fileInfoResult{
			FileID:       fileID,
			FileSize:     info.FileSize,
			CreateTime:   info.CreateTime.Format("2006-01-02T15:04:05Z07:00"),
			CRC32:        info.CRC32,
			SourceIPAddr: info.SourceIPAddr,
		})
		return nil
	}
	fmt.Printf("File ID:     %s\n", fileID)
	fmt.Printf("Size:        %d bytes\n", info.FileSize)
	fmt.Printf("Created:     %s\n", info.CreateTime.Format("2006-01-02T15:04:05Z07:00"))
	fmt.Printf("CRC32:       %08x\n", info.CRC32)
	fmt.Printf("Source IP:   %s\n", info.SourceIPAddr)
	return nil
}

func cmdExists(client *fastdfs.Client, args []string, quiet, jsonOutput bool) error {
	if len(args) != 1 {
		return fmt.Errorf("exists requires exactly one file id")
	}
	fileID := args[0]

	exists := client.FileExists(fileID)
	if jsonOutput {
		printJSONSuccess(map[string]interface{}{"file_id": fileID, "exists": exists})
		return nil
	}
	fmt.Println(exists)
	return nil
}

// cmdBatchUpload uploads every path concurrently: one goroutine per file,
// joined with a WaitGroup. Nothing bounds how many uploads are in flight at
// once: the fastdfs.Client's pool limits only how many idle connections it
// keeps per endpoint (MaxConns), not how many connections are open.
func cmdBatchUpload(client *fastdfs.Client, args []string, quiet, jsonOutput bool) error {
	if len(args) == 0 {
		return fmt.Errorf("batch-upload requires at least one file path")
	}

	results := make([]batchUploadResult, len(args))
	var wg sync.WaitGroup
	wg.Add(len(args))
	for i, path := range args {
		go func(i int, path string) {
			defer wg.Done()
			results[i] = uploadOne(client, path)
		}(i, path)
	}
	wg.Wait()

	if jsonOutput {
		printJSONSuccess(results)
		return nil
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
			if !quiet {
				fmt.Printf("%s: ERROR: %s\n", r.Path, r.Error)
			}
			continue
		}
		if quiet {
			fmt.Println(r.FileID)
		} else {
			fmt.Printf("%s: %s\n", r.Path, r.FileID)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(args))
	}
	return nil
}

func uploadOne(client *fastdfs.Client, path string) batchUploadResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return batchUploadResult{Path: path, Error: err.Error()}
	}
	fileID, err := client.Upload(data, fastdfs.UploadOptions{Extension: wire.ExtractExtension(path)})
	if err != nil {
		return batchUploadResult{Path: path, Error: err.Error()}
	}
	return batchUploadResult{Path: path, FileID: fileID}
}
