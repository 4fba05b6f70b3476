package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/files"
)

var (
	filesMIME      string
	filesName      string
	filesForce     bool
	filesStoreName string
)

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage files uploaded to the Files API",
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file and wait until it is processed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		f, err := s.Files.UploadAndWait(cmd.Context(), args[0], &files.UploadOptions{MIMEType: filesMIME, DisplayName: filesName})
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(f)
		}
		fmt.Printf("%s\t%s\t%s\n", f.Name, f.MIMEType, f.URI)
		return nil
	},
}

var filesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		list, err := s.Files.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println("No files found")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tMIME TYPE\tSTATE\tEXPIRES")
		for _, f := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", f.Name, f.DisplayName, f.MIMEType, f.State, f.ExpirationTime.Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var filesGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		f, err := s.Files.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(f)
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <name>...",
	Short: "Delete files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		for _, name := range args {
			if err := s.Files.Delete(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Println("deleted", name)
		}
		return nil
	},
}

var filesStoresCmd = &cobra.Command{
	Use:   "stores",
	Short: "Manage file search stores",
}

var filesStoresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List file search stores",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		stores, err := s.SearchStores.List(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(stores)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDISPLAY NAME\tACTIVE\tPENDING\tFAILED")
		for _, st := range stores {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n", st.Name, st.DisplayName,
				st.ActiveDocumentsCount, st.PendingDocumentsCount, st.FailedDocumentsCount)
		}
		return w.Flush()
	},
}

var filesStoresCreateCmd = &cobra.Command{
	Use:   "create <display-name>",
	Short: "Create a file search store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		st, err := s.SearchStores.Create(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(st.Name)
		return nil
	},
}

var filesStoresImportCmd = &cobra.Command{
	Use:   "import <file-name>",
	Short: "Import an uploaded file into a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		return s.SearchStores.ImportFile(cmd.Context(), filesStoreName, args[0])
	},
}

var filesStoresDocsCmd = &cobra.Command{
	Use:   "documents <store>",
	Short: "List the documents of a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		docs, err := s.SearchStores.Documents(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(docs)
	},
}

var filesStoresDeleteCmd = &cobra.Command{
	Use:   "delete <store>",
	Short: "Delete a file search store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newStudio(cmd)
		if err != nil {
			return err
		}
		return s.SearchStores.Delete(cmd.Context(), args[0], filesForce)
	},
}

func init() {
	filesUploadCmd.Flags().StringVar(&filesMIME, "mime-type", "", "MIME type (detected when empty)")
	filesUploadCmd.Flags().StringVar(&filesName, "name", "", "display name")
	filesStoresImportCmd.Flags().StringVar(&filesStoreName, "store", "", "target store name")
	_ = filesStoresImportCmd.MarkFlagRequired("store")
	filesStoresDeleteCmd.Flags().BoolVar(&filesForce, "force", false, "also delete the store's documents")

	filesStoresCmd.AddCommand(filesStoresListCmd, filesStoresCreateCmd, filesStoresImportCmd, filesStoresDocsCmd, filesStoresDeleteCmd)
	filesCmd.AddCommand(filesUploadCmd, filesListCmd, filesGetCmd, filesDeleteCmd, filesStoresCmd)
	rootCmd.AddCommand(filesCmd)
}
