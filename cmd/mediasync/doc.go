// Command mediasync reconciles a working directory of encrypted source files
// with the converted files in its output/ folder, removes duplicate
// downloads, archives finished pairs into a storage root, and keeps the
// processed/failed/completed logs consistent.
package main
