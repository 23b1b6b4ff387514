// Package hcl provides the concrete HCL implementation for the grid loading
// and data conversion interfaces defined in the `config` package. It is
// responsible for file parsing, HCL-to-model translation and cty-to-Go data
// binding.
//
// A grid file declares nodes and, optionally, executor settings:
//
//	settings {
//	  max_concurrency   = 4
//	  dependency_policy = "block"
//	}
//
//	node "http_request" "fetch" {
//	  arguments {
//	    url = "https://example.com"
//	  }
//	}
//
//	node "print" "show" {
//	  arguments {
//	    value = { status = node.http_request.fetch.output.status_code }
//	  }
//	  depends_on = ["env_vars.env"]
//	}
package hcl
