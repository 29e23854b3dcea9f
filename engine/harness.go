package engine

// harnessSource is the Python shim that runs one snippet. It reads the job
// file (code plus merged bindings), compiles before executing so syntax
// failures are reported without consuming any execution budget, and always
// writes a verdict file before exiting 0. A worker that dies without a
// verdict file is therefore distinguishable from a snippet that failed.
//
// The snippet's own stdout/stderr are left on the inherited descriptors; the
// supervisor captures them from the process pipes.
const harnessSource = `import json
import sys
import traceback


def snapshot(namespace):
    captured = {}
    for name, value in namespace.items():
        if name.startswith("__"):
            continue
        try:
            json.dumps(value)
        except (TypeError, ValueError, OverflowError):
            continue
        captured[name] = value
    return captured


def main():
    with open(sys.argv[1], "r", encoding="utf-8") as f:
        job = json.load(f)

    report = {"ok": False, "error_kind": "", "error_message": "", "locals": None}

    namespace = {"__name__": "__main__"}
    namespace.update(job.get("globals") or {})
    namespace.update(job.get("locals") or {})

    try:
        compiled = compile(job["code"], "<snippet>", "exec")
    except SyntaxError:
        report["error_kind"] = "syntax"
        report["error_message"] = traceback.format_exc()
    else:
        try:
            exec(compiled, namespace)
        except BaseException:
            report["error_kind"] = "runtime"
            report["error_message"] = traceback.format_exc()
        else:
            report["ok"] = True
            if job.get("capture_locals"):
                report["locals"] = snapshot(namespace)

    sys.stdout.flush()
    sys.stderr.flush()
    with open(sys.argv[2], "w", encoding="utf-8") as f:
        json.dump(report, f)


main()
`
