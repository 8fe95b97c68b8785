// Package cudaext builds the simple_knn._C CUDA extension module.
//
// A build is a straight line: probe the environment for an optional
// include directory, assemble an immutable Configuration, and hand it to
// a Backend that runs the compilers. There are no retries; a failing
// compiler's diagnostics and exit status are passed through unchanged.
//
// # Basic Usage
//
//	p := &cudaext.Pipeline{
//	    Env:     cudaext.DetectEnvironment(),
//	    Backend: &cudaext.NvccBackend{},
//	    Options: &cudaext.BuildOptions{
//	        SourceDir: "submodules/simple-knn",
//	        DestPath:  "site-packages",
//	    },
//	}
//
//	result, err := p.Run(ctx)
//	if err != nil {
//	    fmt.Fprintln(os.Stderr, err)
//	    os.Exit(cudaext.ExitStatus(err))
//	}
//
// # Configuration
//
// AssembleConfiguration is pure. It fixes the module name and the three
// sources (spatial.cu, simple_knn.cu, ext.cpp) and derives the flags:
//   - nvcc: one -gencode entry per compute capability 60, 61, 70, 75, 80
//     and 86, followed by -I<dir> when the libxcrypt probe found headers
//   - cxx: /wd4624 on Windows, nothing elsewhere
//
// # Backends
//
//	BackendFactory
//	├── NvccBackend (nvcc + host compiler, links with nvcc -shared)
//	└── CommandBackend (external command with the configuration exported)
//
// # Platform Support
//
// Linux and Windows with a CUDA toolkit. The package store probe only
// runs where a store root is configured, by default /nix/store on Linux.
package cudaext
