/*
Package operation applies a batch of edited entities to the filesystem.

	+-------------+      +-------------+      +-------------+
	|   Stage     | ---> |   Delete    | ---> |  Restore    |
	| renames and |      | directories |      | and copy    |
	| file delete |      |             |      |             |
	+-------------+      +-------------+      +------+------+
	                                                 |
	                                          +------+------+
	                                          |  Cleanup    |
	                                          | holding dirs|
	                                          | late deletes|
	                                          +-------------+

🎯 Purpose:
- Commits renames, deletes and copies without ever overwriting an object
- Keeps going after a failure and records what could not be done

🔄 Flow:
1. Renamed entities move into a hidden holding directory next to their
   destination, files marked for deletion are removed
2. Directories marked for deletion are removed if they can be
3. Staged entities move to a free name at their destination, copies are made
   from the final location
4. Holding directories are removed, directories that could not be deleted in
   step 2 are tried again

Swaps and cycles work because every renamed object has left its original path
before any object arrives at its destination.

⚡ Routing:
- Tracked entities go through git when a VCS is configured
- Deletes go through the trash program when one is configured
- Everything else uses the filesystem directly

🔍 Example:

	eng, err := operation.New(operation.Options{FS: fsops.NewOS(), Recurse: true})
	if err != nil {
		return err
	}
	res := eng.Run(ctx, batch.Entities())
	os.Exit(res.ExitCode())
*/
package operation
