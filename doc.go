// Package scopekit provides inheritable scoped values for units of
// asynchronous work: declare a Key, bind a value for a dynamic scope, and
// explicitly capture the visible bindings into any unit handed to an
// executor so it observes what its spawner observed.
//
//	var RequestID = scopekit.NewKey[string]()
//
//	err := RequestID.Scope(ctx, "req-42", func(ctx context.Context) error {
//		_, err := pool.Submit(scopekit.Capture(ctx, func(ctx context.Context) error {
//			log.Printf("handling %s", RequestID.Get(ctx))
//			return nil
//		}))
//		return err
//	})
//
// Bound values are shared by reference with every capturing unit, never
// copied or serialized. Inheritance crosses only spawn boundaries that were
// explicitly wrapped with Capture (or spawned with the Inherit option);
// an unwrapped spawn starts with no bindings at all.
//
// Keys must be declared from package-level variable initializers so every
// slot is registered before any unit of work can reference it. Declaring
// keys from dynamically loaded plugin binaries is unsupported: all keys must
// share the single compiled registry instance.
//
// The package also ships Pool, a small in-process executor with typed task
// routing (Mux), delayed execution, and retry with dead-lettering, so the
// capture contract can be exercised without bringing an external runtime.
package scopekit
