package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/divaparadises/studio/drive"
	"github.com/divaparadises/studio/internal/log"
)

var (
	driveFolder   string
	driveQuery    string
	driveDesc     string
	driveSchedule []string
)

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Back up outputs to Google Drive",
	Long: `Back up outputs to Google Drive. The first command run opens an OAuth
consent flow using the client secrets in drive.credentials_file and stores the
token in drive.token_file.`,
}

// newDrive authorizes and connects to Drive.
func newDrive(cmd *cobra.Command) (*drive.Manager, error) {
	opt, err := drive.Authenticate(cmd.Context(), cfg.Drive.CredentialsFile, cfg.Drive.TokenFile, os.Stdin, os.Stderr)
	if err != nil {
		return nil, err
	}
	return drive.NewManager(cmd.Context(), opt)
}

func newWorkflow(cmd *cobra.Command) (*drive.Workflow, error) {
	m, err := newDrive(cmd)
	if err != nil {
		return nil, err
	}
	return drive.NewWorkflow(m, cfg.Drive.LocalRoot, cfg.Drive.RootFolder), nil
}

var driveAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to Drive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := newDrive(cmd); err != nil {
			return err
		}
		fmt.Println("authorized, token stored in", cfg.Drive.TokenFile)
		return nil
	},
}

var driveUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newDrive(cmd)
		if err != nil {
			return err
		}
		for _, path := range args {
			f, err := m.Upload(cmd.Context(), path, driveFolder, driveDesc)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\t%s\n", f.ID, f.Name, f.WebViewLink)
		}
		return nil
	},
}

var driveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List files in a folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newDrive(cmd)
		if err != nil {
			return err
		}
		list, err := m.List(cmd.Context(), driveFolder, driveQuery)
		if err != nil {
			return err
		}
		if jsonOut {
			return printJSON(list)
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTYPE\tSIZE\tCREATED")
		for _, f := range list {
			kind := f.MIMEType
			if f.IsFolder() {
				kind = "folder"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", f.ID, f.Name, kind, f.Size, f.CreatedTime)
		}
		return w.Flush()
	},
}

var driveDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete files or folders",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newDrive(cmd)
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := m.Delete(cmd.Context(), id); err != nil {
				return err
			}
		}
		return nil
	},
}

var driveDownloadCmd = &cobra.Command{
	Use:   "download <id> <path>",
	Short: "Download a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newDrive(cmd)
		if err != nil {
			return err
		}
		return m.Download(cmd.Context(), args[0], args[1])
	},
}

var driveSyncCmd = &cobra.Command{
	Use:   "sync <dir>",
	Short: "Upload a directory tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newDrive(cmd)
		if err != nil {
			return err
		}
		syncer := drive.NewSyncer(m)
		id, err := syncer.ToDrive(cmd.Context(), args[0], driveFolder)
		if err != nil {
			return err
		}
		fmt.Printf("synced %d files into folder %s\n", len(syncer.Log()), id)
		return nil
	},
}

var driveFetchCmd = &cobra.Command{
	Use:   "fetch <folder-id> <dir>",
	Short: "Download the files of a folder",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newDrive(cmd)
		if err != nil {
			return err
		}
		n, err := drive.NewSyncer(m).FromDrive(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("downloaded %d files\n", n)
		return nil
	},
}

var driveStructureCmd = &cobra.Command{
	Use:   "structure",
	Short: "Create the module folders for this month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := newWorkflow(cmd)
		if err != nil {
			return err
		}
		id, err := w.CreateStructure(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var driveBackupCmd = &cobra.Command{
	Use:   "backup [module]",
	Short: "Back up every module, or one",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := newWorkflow(cmd)
		if err != nil {
			return err
		}
		if len(args) == 1 {
			err = w.BackupModule(cmd.Context(), args[0])
		} else {
			err = w.Backup(cmd.Context())
		}
		if err != nil {
			return err
		}
		st := w.Status()
		fmt.Printf("backed up %d files\n", len(st.Log))
		return nil
	},
}

var driveScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run backups on a schedule until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := newWorkflow(cmd)
		if err != nil {
			return err
		}
		for _, spec := range driveSchedule {
			if _, err := w.Schedule(cmd.Context(), spec); err != nil {
				return err
			}
			log.Infof("scheduled backup %q", spec)
		}
		w.Start()
		defer w.Stop()
		<-cmd.Context().Done()
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{driveUploadCmd, driveListCmd, driveSyncCmd} {
		c.Flags().StringVar(&driveFolder, "folder", "", "parent folder ID (default: My Drive)")
	}
	driveUploadCmd.Flags().StringVar(&driveDesc, "description", "", "file description")
	driveListCmd.Flags().StringVarP(&driveQuery, "query", "q", "", "only names containing this text")
	driveScheduleCmd.Flags().StringArrayVar(&driveSchedule, "cron", []string{drive.DailySchedule, drive.WeeklySchedule}, "cron schedule")

	driveCmd.AddCommand(driveAuthCmd, driveUploadCmd, driveListCmd, driveDeleteCmd, driveDownloadCmd,
		driveSyncCmd, driveFetchCmd, driveStructureCmd, driveBackupCmd, driveScheduleCmd)
	rootCmd.AddCommand(driveCmd)
}
